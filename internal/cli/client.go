package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nverno/inf-perl/internal/config"
)

// apiClient is a thin REST client against the local daemon. The base
// address and token come from the same config file the daemon reads.
type apiClient struct {
	base   string
	wsBase string
	token  string
	http   *http.Client
}

func newAPIClient() (*apiClient, error) {
	cfg, err := config.Load(config.Overrides{ConfigPath: configPath})
	if err != nil {
		return nil, err
	}
	return &apiClient{
		base:   fmt.Sprintf("http://127.0.0.1:%d", cfg.Port),
		wsBase: fmt.Sprintf("ws://127.0.0.1:%d", cfg.Port),
		token:  cfg.Token,
		// Script runs block until the last step finishes, so the client
		// timeout has to cover long wait_prompt chains.
		http: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (c *apiClient) do(method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s (is \"inf-perl serve\" running?): %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
