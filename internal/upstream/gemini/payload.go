package gemini

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const thinkingConfigPath = "generationConfig.thinkingConfig"

// PreparePayload adapts a caller payload to a tier. Enhanced tiers get dynamic
// thinking unless the caller already set a budget; standard tiers drop the
// thinking config. A "model" field is stripped because the model lives in the URL.
func PreparePayload(payload []byte, enhanced bool) ([]byte, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	if !gjson.GetBytes(payload, "contents").Exists() {
		return nil, fmt.Errorf("payload is missing contents")
	}

	out := payload
	var err error
	if gjson.GetBytes(out, "model").Exists() {
		if out, err = sjson.DeleteBytes(out, "model"); err != nil {
			return nil, err
		}
	}

	if enhanced {
		if !gjson.GetBytes(out, thinkingConfigPath+".thinkingBudget").Exists() {
			if out, err = sjson.SetBytes(out, thinkingConfigPath+".thinkingBudget", -1); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	if gjson.GetBytes(out, thinkingConfigPath).Exists() {
		if out, err = sjson.DeleteBytes(out, thinkingConfigPath); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(body []byte) string {
	var text string
	gjson.GetBytes(body, "candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		if part.Get("thought").Bool() {
			return true
		}
		text += part.Get("text").String()
		return true
	})
	return text
}
