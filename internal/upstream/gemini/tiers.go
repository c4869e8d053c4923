package gemini

import (
	"context"
	"encoding/json"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/credential"
	"quotaflow-go/internal/upstream"
)

// Generator is the subset of *Client a tier needs.
type Generator interface {
	Generate(ctx context.Context, key credential.Credential, model string, payload []byte) ([]byte, error)
}

// BuildTiers turns configured tiers into executor tiers that call gen.
// Each payload is prepared lazily when the tier's factory runs, so a payload
// rejected by one tier does not affect tiers that are never tried.
func BuildTiers(gen Generator, tiers []config.TierConfig, payload []byte) []upstream.Tier[json.RawMessage] {
	out := make([]upstream.Tier[json.RawMessage], 0, len(tiers))
	for _, tc := range tiers {
		tc := tc
		out = append(out, upstream.Tier[json.RawMessage]{
			Name:     tierLabel(tc),
			Enhanced: tc.Enhanced,
			Factory: func() upstream.Operation[json.RawMessage] {
				body, prepErr := PreparePayload(payload, tc.Enhanced)
				return func(ctx context.Context, cred credential.Credential) (json.RawMessage, error) {
					if prepErr != nil {
						return nil, prepErr
					}
					resp, err := gen.Generate(ctx, cred, tc.Model, body)
					if err != nil {
						return nil, err
					}
					return json.RawMessage(resp), nil
				}
			},
		})
	}
	return out
}

func tierLabel(tc config.TierConfig) string {
	if tc.Name != "" {
		return tc.Name
	}
	return tc.Model
}
