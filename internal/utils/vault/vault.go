package vault

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"

	"github.com/dwarvesf/payments-backend/internal/utils/config"
)

const kubernetesTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// VaultClient reads secrets from a HashiCorp Vault KV v2 mount. The service
// uses it exactly once, at startup, to fetch the mnemonic encryption key.
type VaultClient struct {
	addr         string
	kvSecretPath string
	role         string
	token        string
	client       *resty.Client
}

// New builds a client and authenticates. With a static token configured it is
// used directly; otherwise Kubernetes service-account login is performed.
func New(cfg config.VaultConfig) (*VaultClient, error) {
	vc := &VaultClient{
		addr:         cfg.Addr,
		kvSecretPath: cfg.KVSecretPath,
		role:         cfg.Role,
		token:        cfg.Token,
		client:       resty.New(),
	}

	if vc.token == "" {
		token, err := vc.kubernetesLogin()
		if err != nil {
			return nil, err
		}
		vc.token = token
	}

	return vc, nil
}

func (vc *VaultClient) kubernetesLogin() (string, error) {
	k8sToken, err := os.ReadFile(kubernetesTokenPath)
	if err != nil {
		return "", fmt.Errorf("failed to read kubernetes token: %v", err)
	}

	resp, err := vc.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"jwt":  string(k8sToken),
			"role": vc.role,
		}).
		Post(fmt.Sprintf("%s/v1/auth/kubernetes/login", vc.addr))
	if err != nil {
		return "", err
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault authentication failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var result struct {
		Errors []string `json:"errors"`
		Auth   *struct {
			ClientToken string `json:"client_token"`
		} `json:"auth"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse vault response: %v", err)
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("vault authentication error: %v", result.Errors)
	}
	if result.Auth == nil || result.Auth.ClientToken == "" {
		return "", fmt.Errorf("vault response missing client token")
	}

	return result.Auth.ClientToken, nil
}

// GetSecretKey reads one value from the configured KV v2 path.
func (vc *VaultClient) GetSecretKey(secretKey string) (string, error) {
	resp, err := vc.client.R().
		SetHeader("X-Vault-Token", vc.token).
		Get(fmt.Sprintf("%s/v1/%s", vc.addr, vc.kvSecretPath))
	if err != nil {
		return "", err
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault KV read failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var result struct {
		Errors []string `json:"errors"`
		Data   *struct {
			// KV v2 nests the secret map one level down
			Data map[string]interface{} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse vault response: %v", err)
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("vault KV read error: %v", result.Errors)
	}
	if result.Data == nil || result.Data.Data == nil {
		return "", fmt.Errorf("vault response missing data")
	}

	value, exists := result.Data.Data[secretKey]
	if !exists {
		return "", fmt.Errorf("secret key '%s' not found", secretKey)
	}

	secret, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key '%s' is not a string", secretKey)
	}

	return secret, nil
}
