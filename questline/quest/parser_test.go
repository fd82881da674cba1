package quest

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func timeNowForTest() time.Time {
	return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

const validProjectTOML = `
[project]
id = "gluex"
name = "GlueX"
description = "GlueX trading quests"
graphqlEndpoint = "https://api.gluex.example/graphql"

[[quest]]
id = "swap_1_usdt0_to_xpl"
title = "First Swap"
description = "Swap 1 USDT0 to XPL"
reward = 100
type = "conditional"
query = "query($walletAddress: String!) { swaps(where: {sender: $walletAddress}) { id } }"

[[quest.conditions]]
field = "len(swaps)"
operator = ">="
value = 1

[[quest]]
id = "total_volume"
title = "Volume Milestone"
description = "Trade 720k in volume"
reward = 250
type = "progress"
startDate = "2026-01-01"
endDate = "2026-12-31"
query = "query($walletAddress: String!) { user(id: $walletAddress) { volume } }"

[[quest.variables]]
timestamp = "last24h"

[[quest.conditions]]
field = "user.volume"
operator = ">="
value = 720000

[[quest]]
id = "streak"
title = "Round Streak"
description = "Play four rounds in a row"
reward = 300
type = "sequential"
query = "query($walletAddress: String!) { rounds(player: $walletAddress) { index status } }"

[quest.sequenceCondition]
field = "index"
sequenceLength = 4

[[quest.conditions]]
field = "rounds"
itemConditionField = "status"
operator = "="
value = "FINISHED"

[[quest]]
id = "total_value_traded_100_usdt0"
title = "Whale Trade"
description = "Trade 100 USDT0 total"
reward = 500
type = "custom(100000000, 'daily', true)"
query = "query($walletAddress: String!) { user(id: $walletAddress) { tokenVolumes { token totalVolume } } }"

[quest.validator]
module = "gluex"
function = "total_value_traded_100_usdt0"

[quest.validator.params]
baseToken = "0xb8ce"

[[quest]]
id = "implicit_validator"
title = "Implicit"
description = "Custom quest without a validator table"
reward = 50
type = "custom"
query = "query($walletAddress: String!) { player(id: $walletAddress) { games { status } } }"
`

func TestParseProject(t *testing.T) {
	doc, err := ParseProject([]byte(validProjectTOML))
	if err != nil {
		t.Fatalf("ParseProject() error = %v", err)
	}

	if doc.Project.ID != "gluex" {
		t.Errorf("project id = %q, want %q", doc.Project.ID, "gluex")
	}
	if doc.Project.QueryEndpoint != "https://api.gluex.example/graphql" {
		t.Errorf("endpoint = %q", doc.Project.QueryEndpoint)
	}
	if len(doc.Quests) != 5 {
		t.Fatalf("parsed %d quests, want 5", len(doc.Quests))
	}

	conditional := doc.Quests[0]
	if conditional.Type != TypeConditional {
		t.Errorf("quest type = %q, want conditional", conditional.Type)
	}
	if conditional.ProjectID != "gluex" {
		t.Errorf("quest project id = %q", conditional.ProjectID)
	}
	if len(conditional.Conditions) != 1 || conditional.Conditions[0].Field != "len(swaps)" {
		t.Fatalf("unexpected conditions: %+v", conditional.Conditions)
	}

	progress := doc.Quests[1]
	if progress.StartDate != "2026-01-01" || progress.EndDate != "2026-12-31" {
		t.Errorf("quest window = %q..%q", progress.StartDate, progress.EndDate)
	}
	if len(progress.Variables) != 1 || progress.Variables[0]["timestamp"] != "last24h" {
		t.Errorf("unexpected variables: %+v", progress.Variables)
	}

	sequential := doc.Quests[2]
	if sequential.SequenceCondition == nil || sequential.SequenceCondition.SequenceLength != 4 {
		t.Fatalf("unexpected sequence condition: %+v", sequential.SequenceCondition)
	}
	if sequential.Conditions[0].ItemConditionField != "status" {
		t.Errorf("item condition field = %q", sequential.Conditions[0].ItemConditionField)
	}

	custom := doc.Quests[3]
	if custom.Type != TypeCustom {
		t.Errorf("quest type = %q, want custom", custom.Type)
	}
	wantParams := []any{float64(100000000), "daily", true}
	if len(custom.TypeParams) != len(wantParams) {
		t.Fatalf("type params = %v, want %v", custom.TypeParams, wantParams)
	}
	for i, want := range wantParams {
		if custom.TypeParams[i] != want {
			t.Errorf("type param %d = %v (%T), want %v (%T)", i, custom.TypeParams[i], custom.TypeParams[i], want, want)
		}
	}
	if custom.Validator == nil || custom.Validator.Module != "gluex" || custom.Validator.Function != "total_value_traded_100_usdt0" {
		t.Fatalf("unexpected validator ref: %+v", custom.Validator)
	}
	if custom.Validator.Params["baseToken"] != "0xb8ce" {
		t.Errorf("validator params = %+v", custom.Validator.Params)
	}

	implicit := doc.Quests[4]
	if implicit.Validator == nil || implicit.Validator.Module != "gluex" || implicit.Validator.Function != "implicit_validator" {
		t.Fatalf("implicit validator ref = %+v", implicit.Validator)
	}
}

func TestParseProjectErrors(t *testing.T) {
	quest := `
[[quest]]
id = "q1"
title = "Quest"
description = "A quest"
reward = 10
type = "conditional"
query = "query { ok }"

[[quest.conditions]]
field = "ok"
operator = "="
value = true
`

	tests := []struct {
		name string
		toml string
	}{
		{name: "not toml", toml: "{not toml"},
		{name: "missing project section", toml: quest},
		{
			name: "missing project field",
			toml: `
[project]
id = "p"
name = "P"
description = ""
graphqlEndpoint = "https://x"
` + quest,
		},
		{
			name: "no quests",
			toml: `
[project]
id = "p"
name = "P"
description = "d"
graphqlEndpoint = "https://x"
`,
		},
		{
			name: "missing quest title",
			toml: `
[project]
id = "p"
name = "P"
description = "d"
graphqlEndpoint = "https://x"

[[quest]]
id = "q1"
description = "A quest"
reward = 10
type = "conditional"
query = "query { ok }"
`,
		},
		{
			name: "zero reward",
			toml: `
[project]
id = "p"
name = "P"
description = "d"
graphqlEndpoint = "https://x"

[[quest]]
id = "q1"
title = "Quest"
description = "A quest"
reward = 0
type = "conditional"
query = "query { ok }"
`,
		},
		{
			name: "unknown type",
			toml: `
[project]
id = "p"
name = "P"
description = "d"
graphqlEndpoint = "https://x"

[[quest]]
id = "q1"
title = "Quest"
description = "A quest"
reward = 10
type = "weekly"
query = "query { ok }"
`,
		},
		{
			name: "unknown operator",
			toml: `
[project]
id = "p"
name = "P"
description = "d"
graphqlEndpoint = "https://x"

[[quest]]
id = "q1"
title = "Quest"
description = "A quest"
reward = 10
type = "conditional"
query = "query { ok }"

[[quest.conditions]]
field = "ok"
operator = "~"
value = 1
`,
		},
		{
			name: "conditional without condition",
			toml: `
[project]
id = "p"
name = "P"
description = "d"
graphqlEndpoint = "https://x"

[[quest]]
id = "q1"
title = "Quest"
description = "A quest"
reward = 10
type = "conditional"
query = "query { ok }"
`,
		},
		{
			name: "sequential without sequenceCondition",
			toml: `
[project]
id = "p"
name = "P"
description = "d"
graphqlEndpoint = "https://x"

[[quest]]
id = "q1"
title = "Quest"
description = "A quest"
reward = 10
type = "sequential"
query = "query { ok }"

[[quest.conditions]]
field = "rounds"
operator = "="
value = "FINISHED"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProject([]byte(tt.toml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("error %v does not wrap ErrConfig", err)
			}
		})
	}
}

func TestParseTypeWithParams(t *testing.T) {
	tests := []struct {
		in       string
		wantType string
		want     []any
	}{
		{in: "conditional", wantType: "conditional", want: nil},
		{in: "custom()", wantType: "custom", want: nil},
		{in: "custom(100000000)", wantType: "custom", want: []any{float64(100000000)}},
		{in: "custom(100000000, 'daily', true)", wantType: "custom", want: []any{float64(100000000), "daily", true}},
		{in: `custom("weekly", false)`, wantType: "custom", want: []any{"weekly", false}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			baseType, params, err := parseTypeWithParams(tt.in)
			if err != nil {
				t.Fatalf("parseTypeWithParams(%q) error = %v", tt.in, err)
			}
			if baseType != tt.wantType {
				t.Errorf("type = %q, want %q", baseType, tt.wantType)
			}
			if len(params) != len(tt.want) {
				t.Fatalf("params = %v, want %v", params, tt.want)
			}
			for i := range params {
				if params[i] != tt.want[i] {
					t.Errorf("param %d = %v (%T), want %v (%T)", i, params[i], params[i], tt.want[i], tt.want[i])
				}
			}
		})
	}

	if _, _, err := parseTypeWithParams("bad type!"); err == nil {
		t.Error("expected error for malformed type string")
	}
}

func TestQuestActive(t *testing.T) {
	doc, err := ParseProject([]byte(strings.Replace(validProjectTOML,
		`startDate = "2026-01-01"`, `startDate = "2999-01-01"`, 1)))
	if err != nil {
		t.Fatalf("ParseProject() error = %v", err)
	}
	if doc.Quests[1].Active(timeNowForTest()) {
		t.Error("quest starting in 2999 should not be active")
	}
	if !doc.Quests[0].Active(timeNowForTest()) {
		t.Error("quest with no window should always be active")
	}
}
