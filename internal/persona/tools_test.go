package persona

import (
	"strings"
	"testing"

	"github.com/malhajar17/moentreprise/pkg/realtime"
)

func TestSelectionTool_EnumCoversRosterPlusHuman(t *testing.T) {
	t.Parallel()
	r := testRoster(t)

	tool := SelectionTool(r)
	if tool.Name != SelectionToolName {
		t.Fatalf("tool name = %q; want %q", tool.Name, SelectionToolName)
	}
	if !strings.Contains(tool.Description, "0=Marcus") || !strings.Contains(tool.Description, "3=Human") {
		t.Errorf("description missing index legend: %q", tool.Description)
	}

	props, ok := tool.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatalf("parameters missing properties: %v", tool.Parameters)
	}
	idx, ok := props["speaker_index"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing speaker_index: %v", props)
	}
	enum, ok := idx["enum"].([]any)
	if !ok || len(enum) != 4 {
		t.Fatalf("enum = %v; want 4 entries", idx["enum"])
	}
	for i, want := range []string{"0", "1", "2", "3"} {
		if enum[i] != want {
			t.Errorf("enum[%d] = %v; want %q", i, enum[i], want)
		}
	}
	if _, present := tool.Parameters["$schema"]; present {
		t.Error("parameters still carry $schema marker")
	}
}

func TestWorkflowTool_PerRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role     Role
		wantName string
	}{
		{RoleBuilder, ToolStartSiteBuild},
		{RoleMarketer, ToolPublishSocialPost},
		{RoleVideoProducer, ToolProducePromoVideo},
	}
	for _, tc := range cases {
		tool, ok := WorkflowTool(tc.role)
		if !ok || tool.Name != tc.wantName {
			t.Errorf("WorkflowTool(%q) = %q, %v; want %q", tc.role, tool.Name, ok, tc.wantName)
		}
		if tool.Parameters["type"] != "object" {
			t.Errorf("WorkflowTool(%q) parameters type = %v; want object", tc.role, tool.Parameters["type"])
		}
	}

	for _, role := range []Role{RoleNone, RoleCoordinator, RoleInterviewer, RoleResearcher} {
		if _, ok := WorkflowTool(role); ok {
			t.Errorf("WorkflowTool(%q) returned a tool; want none", role)
		}
	}
}

func TestTools_SelectionAlwaysFirst(t *testing.T) {
	t.Parallel()
	r := testRoster(t)

	plain, _ := r.Get(0) // coordinator, no workflow tool
	if tools := Tools(r, plain); len(tools) != 1 || tools[0].Name != SelectionToolName {
		t.Errorf("coordinator tools = %v; want selection only", names(tools))
	}

	builder, _ := r.Get(2)
	tools := Tools(r, builder)
	if len(tools) != 2 || tools[0].Name != SelectionToolName || tools[1].Name != ToolStartSiteBuild {
		t.Errorf("builder tools = %v; want [selection, start_site_build]", names(tools))
	}
}

func names(tools []realtime.ToolDefinition) []string {
	out := make([]string, len(tools))
	for i, tool := range tools {
		out[i] = tool.Name
	}
	return out
}
