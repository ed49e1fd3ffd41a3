package model

// RuleKey is one of the closed set of matchmaking rule names a client may
// submit with StartMatchmaking.
type RuleKey string

const (
	RuleMap        RuleKey = "map"
	RuleEnemyType  RuleKey = "enemyType"
	RuleDifficulty RuleKey = "difficulty"
	RuleDLC2500    RuleKey = "dlc2500"
	RuleDLC2700    RuleKey = "dlc2700"
	RuleDLC3050    RuleKey = "dlc3050"
	RuleDLC3225    RuleKey = "dlc3225"
	RuleDLC3500    RuleKey = "dlc3500"
)

// abstainValue is the rule value meaning "no preference"; such entries are
// dropped at construction rather than carried as a wildcard, since a rule
// set with no entry for a key already means "don't care" for that key.
const abstainValue = "abstain"

// RuleSet is a player-supplied matchmaking predicate: required attribute
// values keyed by RuleKey. It is immutable once built.
type RuleSet struct {
	rules map[RuleKey]string
}

// NewRuleSet builds a RuleSet from raw (key, value) pairs, stripping any
// entry whose value is the "abstain" sentinel and any key outside the
// closed rule-key list.
func NewRuleSet(pairs map[string]string) RuleSet {
	rs := RuleSet{rules: make(map[RuleKey]string, len(pairs))}
	for k, v := range pairs {
		if v == abstainValue {
			continue
		}
		key := RuleKey(k)
		switch key {
		case RuleMap, RuleEnemyType, RuleDifficulty, RuleDLC2500, RuleDLC2700, RuleDLC3050, RuleDLC3225, RuleDLC3500:
			rs.rules[key] = v
		}
	}
	return rs
}

// Matches reports whether every rule in rs is satisfied by attrs (a game's
// attribute map) and every DLC attribute the game marks "required" has a
// rule in rs. A rule set with no entries matches any game that marks no DLC
// as required.
func (rs RuleSet) Matches(attrs map[string]string) bool {
	for k, want := range rs.rules {
		got, ok := attrs[attributeFor(k)]
		if !ok || got != want {
			return false
		}
	}
	for _, k := range []RuleKey{RuleDLC2500, RuleDLC2700, RuleDLC3050, RuleDLC3225, RuleDLC3500} {
		if _, has := rs.rules[k]; !has && attrs[attributeFor(k)] == "required" {
			return false
		}
	}
	return true
}

// attributeFor maps a closed rule key onto the client attribute name it
// constrains, per §6's ME3map/ME3privacy/ME3_dlcXXXX attribute family.
func attributeFor(k RuleKey) string {
	switch k {
	case RuleMap:
		return "ME3map"
	case RuleEnemyType:
		return "ME3gametype"
	case RuleDifficulty:
		return "ME3difficulty"
	case RuleDLC2500:
		return "ME3_dlc2500"
	case RuleDLC2700:
		return "ME3_dlc2700"
	case RuleDLC3050:
		return "ME3_dlc3050"
	case RuleDLC3225:
		return "ME3_dlc3225"
	case RuleDLC3500:
		return "ME3_dlc3500"
	default:
		return string(k)
	}
}

// Len reports how many (non-abstain) rules this set carries.
func (rs RuleSet) Len() int { return len(rs.rules) }
