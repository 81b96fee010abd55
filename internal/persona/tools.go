package persona

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/malhajar17/moentreprise/pkg/realtime"
)

// SelectionToolName is the function every persona must call after speaking
// to hand the floor to the next participant.
const SelectionToolName = "select_next_speaker"

// Workflow tool names, one per scripted duty. Only the persona holding the
// matching role is offered the tool.
const (
	ToolStartSiteBuild    = "start_site_build"
	ToolPublishSocialPost = "publish_social_post"
	ToolProducePromoVideo = "produce_promo_video"
)

// SelectionArgs is the argument payload of the selection tool. SpeakerIndex
// is a stringified roster index; the valid values are injected into the
// schema per roster, since they depend on the cast size.
type SelectionArgs struct {
	SpeakerIndex string `json:"speaker_index" jsonschema:"title=Speaker index,description=Index of the next speaker"`
}

// SocialPostArgs is the argument payload of the publish_social_post tool.
type SocialPostArgs struct {
	Content       string `json:"content" jsonschema:"description=The announcement text for the launch post. Professional and enthusiastic."`
	WebsiteURL    string `json:"website_url" jsonschema:"description=The website URL being announced."`
	GenerateImage bool   `json:"generate_image" jsonschema:"description=Whether to generate a marketing image for the post."`
}

// PromoVideoArgs is the argument payload of the produce_promo_video tool.
type PromoVideoArgs struct {
	Prompt string `json:"prompt" jsonschema:"description=A short scene description for the promotional video."`
}

// SelectionTool builds the mandatory select_next_speaker schema for the
// given roster. The speaker_index enum covers every persona index plus the
// human slot, and the description names each index so the model can choose.
func SelectionTool(r *Roster) realtime.ToolDefinition {
	speakers := r.Speakers()
	legend := make([]string, len(speakers))
	enum := make([]any, len(speakers))
	for i, name := range speakers {
		legend[i] = strconv.Itoa(i) + "=" + name
		enum[i] = strconv.Itoa(i)
	}

	params := reflectParams(&SelectionArgs{})
	if props, ok := params["properties"].(map[string]any); ok {
		if idx, ok := props["speaker_index"].(map[string]any); ok {
			idx["enum"] = enum
			idx["description"] = "Index of next speaker: " + strings.Join(legend, ", ")
		}
	}

	return realtime.ToolDefinition{
		Name: SelectionToolName,
		Description: "Call this ONLY AFTER you have finished speaking to choose who speaks next. Speakers: " +
			strings.Join(legend, ", "),
		Parameters: params,
	}
}

// WorkflowTool returns the specialised tool for a scripted role, or false
// when the role has none.
func WorkflowTool(role Role) (realtime.ToolDefinition, bool) {
	switch role {
	case RoleBuilder:
		return realtime.ToolDefinition{
			Name:        ToolStartSiteBuild,
			Description: "Trigger the build-and-run pipeline that generates the initial website from the gathered requirements.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}, "required": []any{}},
		}, true
	case RoleMarketer:
		return realtime.ToolDefinition{
			Name:        ToolPublishSocialPost,
			Description: "Create and publish a launch announcement with an AI-generated marketing image.",
			Parameters:  reflectParams(&SocialPostArgs{}),
		}, true
	case RoleVideoProducer:
		return realtime.ToolDefinition{
			Name:        ToolProducePromoVideo,
			Description: "Generate a short promotional video for the launched website.",
			Parameters:  reflectParams(&PromoVideoArgs{}),
		}, true
	default:
		return realtime.ToolDefinition{}, false
	}
}

// Tools assembles the full tool list for one persona turn: the selection
// tool plus the persona's role tool when it has one.
func Tools(r *Roster, p Persona) []realtime.ToolDefinition {
	tools := []realtime.ToolDefinition{SelectionTool(r)}
	if wt, ok := WorkflowTool(p.Role); ok {
		tools = append(tools, wt)
	}
	return tools
}

// reflectParams produces an inline JSON-schema parameter object from a Go
// struct. The $schema marker is stripped since function-call schemas embed
// the object directly.
func reflectParams(v any) map[string]any {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("persona: reflect tool schema: %v", err))
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		panic(fmt.Sprintf("persona: decode tool schema: %v", err))
	}
	delete(params, "$schema")
	return params
}
