package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// WebhookEnvPrefix prefixes environment variables holding webhook URLs:
// WEBHOOK_ROOM_2189=https://hooks.slack.com/services/... is the webhook
// named "room_2189".
const WebhookEnvPrefix = "WEBHOOK_"

// LoadWebhooks collects webhook secrets from the process environment and,
// if envFile is set and exists, from that dotenv file. Process environment
// wins over the file.
func LoadWebhooks(envFile string) (map[string]string, error) {
	out := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			collectWebhooks(out, vals)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}
	env := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	collectWebhooks(out, env)
	return out, nil
}

func collectWebhooks(dst, src map[string]string) {
	for k, v := range src {
		if !strings.HasPrefix(k, WebhookEnvPrefix) {
			continue
		}
		name := normalizeWebhookName(strings.TrimPrefix(k, WebhookEnvPrefix))
		v = strings.TrimSpace(v)
		if name == "" || v == "" {
			continue
		}
		dst[name] = v
	}
}

func normalizeWebhookName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
