package model

import "testing"

func TestNewRuleSetStripsAbstain(t *testing.T) {
	rs := NewRuleSet(map[string]string{
		"map":        "abstain",
		"difficulty": "hardcore",
	})
	if rs.Len() != 1 {
		t.Fatalf("expected 1 rule after stripping abstain, got %d", rs.Len())
	}
}

func TestNewRuleSetDropsUnknownKeys(t *testing.T) {
	rs := NewRuleSet(map[string]string{"bogusKey": "x", "map": "map2"})
	if rs.Len() != 1 {
		t.Fatalf("expected unknown key dropped, got %d rules", rs.Len())
	}
}

func TestRuleSetMatches(t *testing.T) {
	rs := NewRuleSet(map[string]string{"map": "map2"})
	attrs := map[string]string{"ME3map": "map2", "ME3privacy": "PUBLIC"}
	if !rs.Matches(attrs) {
		t.Error("expected match")
	}
}

// TestRuleMismatch is end-to-end scenario 4 from the worked examples: a
// queued player whose rule set lacks a DLC flag the game requires must not
// match.
func TestRuleMismatch(t *testing.T) {
	gameAttrs := map[string]string{"ME3privacy": "PUBLIC", "ME3_dlc2500": "required"}
	rs := NewRuleSet(map[string]string{"map": "map2"}) // no dlc2500 rule at all
	if rs.Matches(gameAttrs) {
		t.Fatal("expected NotMatch: the game requires dlc2500 and the rule set names no dlc2500 rule")
	}

	rsWithMismatch := NewRuleSet(map[string]string{"dlc2500": "optional"})
	if rsWithMismatch.Matches(gameAttrs) {
		t.Error("expected NotMatch: rule requires optional, game attribute is required")
	}
}

func TestEmptyRuleSetAlwaysMatches(t *testing.T) {
	rs := NewRuleSet(nil)
	if !rs.Matches(map[string]string{"anything": "goes"}) {
		t.Error("empty rule set should match any attributes")
	}
}
