package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"golang.org/x/term"

	"github.com/entraops/entramap/internal/config"
)

// newCredential builds the token credential used by the Graph and
// project clients. Auth material comes from config plus, for the
// client-secret flow, an interactive prompt when the secret is absent
// and stdin is a terminal. Nothing below this layer reads the
// environment.
func newCredential() (azcore.TokenCredential, error) {
	switch cfg.AuthMethod {
	case config.AuthClientSecret:
		if cfg.TenantID == "" || cfg.ClientID == "" {
			return nil, fmt.Errorf("client-secret auth requires ENTRAMAP_TENANT_ID and ENTRAMAP_CLIENT_ID")
		}
		secret := cfg.ClientSecret
		if secret == "" {
			var err error
			secret, err = promptSecret("Client secret: ")
			if err != nil {
				return nil, err
			}
		}
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, secret, nil)
		if err != nil {
			return nil, fmt.Errorf("client secret credential: %w", err)
		}
		return cred, nil
	default:
		// Reuses the token cache of a prior `az login`.
		cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
			TenantID: cfg.TenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("azure cli credential: %w", err)
		}
		return cred, nil
	}
}

// promptSecret reads a secret from the terminal without echo.
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("client secret not configured and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	if strings.TrimSpace(string(secret)) == "" {
		return "", fmt.Errorf("empty client secret")
	}
	return string(secret), nil
}
