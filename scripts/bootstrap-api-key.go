package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/model"
	"github.com/flowbot/flowbot/internal/repository"
	"github.com/flowbot/flowbot/internal/secret"
	"github.com/flowbot/flowbot/internal/trudesk"
)

type output struct {
	UserID       string   `json:"user_id"`
	Email        string   `json:"email"`
	WorkspaceID  string   `json:"workspace_id"`
	KeyID        string   `json:"key_id"`
	Key          string   `json:"key"`
	KeyPrefix    string   `json:"key_prefix"`
	Scopes       []string `json:"scopes"`
	CredentialID string   `json:"credential_id,omitempty"`
}

func main() {
	var (
		databaseURL   = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		migrate       = flag.Bool("migrate", false, "Apply migrations before seeding")
		userID        = flag.String("user-id", "system", "User ID to own the API key")
		email         = flag.String("email", "system@flowbot.local", "User email")
		workspaceID   = flag.String("workspace-id", "", "Workspace to create with the user as ADMIN (optional)")
		workspaceName = flag.String("workspace-name", "Default", "Name of the created workspace")
		name          = flag.String("name", "bootstrap", "API key name")
		scopesInput   = flag.String("scopes", "admin", "Comma-separated scopes (read,write,upload,admin)")
		trudeskURL    = flag.String("trudesk-url", "", "Seed a Trudesk credential with this base URL (needs -workspace-id)")
		trudeskUser   = flag.String("trudesk-user", "", "Trudesk username")
		trudeskPass   = flag.String("trudesk-password", os.Getenv("TRUDESK_PASSWORD"), "Trudesk password")
		format        = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fail("DATABASE_URL is required")
	}
	if *trudeskURL != "" && *workspaceID == "" {
		fail("-trudesk-url needs -workspace-id")
	}

	scopes, err := parseScopes(*scopesInput)
	if err != nil {
		fail(err.Error())
	}

	if *migrate {
		if err := repository.RunMigrations(*databaseURL); err != nil {
			fail("run migrations:", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fail("connect database:", err)
	}
	defer repo.Close()

	if err := ensureUser(ctx, repo, *userID, *email); err != nil {
		fail(err.Error())
	}

	if *workspaceID != "" {
		if err := ensureWorkspace(ctx, repo, *workspaceID, *workspaceName, *userID); err != nil {
			fail(err.Error())
		}
	}

	generated, err := auth.GenerateAPIKey(auth.EnvLive)
	if err != nil {
		fail("generate api key:", err)
	}

	apiKey := &model.APIKey{
		ID:            strings.ToLower(ulid.Make().String()),
		UserID:        *userID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: model.TierUnlimited,
		Name:          *name,
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.CreateAPIKey(ctx, apiKey); err != nil {
		fail("create api key:", err)
	}

	out := output{
		UserID:      *userID,
		Email:       *email,
		WorkspaceID: *workspaceID,
		KeyID:       apiKey.ID,
		Key:         generated.Plaintext,
		KeyPrefix:   apiKey.KeyPrefix,
		Scopes:      scopes,
	}

	if *trudeskURL != "" {
		id, err := seedTrudesk(ctx, repo, *workspaceID, model.TrudeskCredential{
			UserName: *trudeskUser,
			Password: *trudeskPass,
			BaseURL:  *trudeskURL,
		})
		if err != nil {
			fail("seed trudesk credential:", err)
		}
		out.CredentialID = id
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Key)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fail("invalid format; use plain or json")
	}
}

func fail(args ...any) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func parseScopes(input string) ([]string, error) {
	var scopes []string
	for part := range strings.SplitSeq(input, ",") {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if !model.IsValidScope(scope) {
			return nil, fmt.Errorf("invalid scope: %s", scope)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		scopes = []string{model.ScopeAdmin}
	}
	return scopes, nil
}

func ensureUser(ctx context.Context, repo *repository.Repository, userID, email string) error {
	existing, err := repo.GetUserByID(ctx, userID)
	if err == nil {
		if existing.Email != email {
			return fmt.Errorf("user %s exists with different email: %s", userID, existing.Email)
		}
		return nil
	}

	user, err := repo.GetOrCreateUser(ctx, &model.User{ID: userID, Email: email})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if user.ID != userID {
		return fmt.Errorf("email %s already used by user %s", email, user.ID)
	}
	return nil
}

func ensureWorkspace(ctx context.Context, repo *repository.Repository, id, name, ownerID string) error {
	_, err := repo.GetWorkspace(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrWorkspaceNotFound) {
		return err
	}

	ws := &model.Workspace{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	owner := &model.WorkspaceMember{WorkspaceID: id, UserID: ownerID, Role: model.WorkspaceRoleAdmin}
	if err := repo.CreateWorkspace(ctx, ws, owner); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	return nil
}

// seedTrudesk stores an encrypted credential the same way the API does.
// Private hosts are accepted since seeding targets local setups.
func seedTrudesk(ctx context.Context, repo *repository.Repository, workspaceID string, cred model.TrudeskCredential) (string, error) {
	if err := trudesk.ValidateBaseURL(cred.BaseURL, true); err != nil {
		return "", err
	}

	cipher, err := secret.NewCipher(os.Getenv("ENCRYPTION_SECRET"))
	if err != nil {
		return "", fmt.Errorf("ENCRYPTION_SECRET: %w", err)
	}
	data, iv, err := cipher.Encrypt(cred)
	if err != nil {
		return "", err
	}

	c := &model.Credential{
		ID:          strings.ToLower(ulid.Make().String()),
		WorkspaceID: workspaceID,
		Name:        "Trudesk",
		Type:        model.CredentialTypeTrudesk,
		Data:        data,
		IV:          iv,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.CreateCredential(ctx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}
