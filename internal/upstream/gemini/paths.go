package gemini

// ActionGenerate is the model action the client posts to.
const ActionGenerate = "generateContent"

// BuildModelActionPath returns the versioned path for an action on model.
// Example: BuildModelActionPath("gemini-2.5-pro", ActionGenerate) ->
// "/v1beta/models/gemini-2.5-pro:generateContent"
func BuildModelActionPath(model, action string) string {
	if action == "" {
		action = ActionGenerate
	}
	return "/v1beta/models/" + modelPath(model) + ":" + action
}
