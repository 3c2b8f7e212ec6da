package engine

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardfall/journey-engine/pkg/player"
	"github.com/shardfall/journey-engine/pkg/story"
)

// scriptedRoller pops queued values; it fails the test when the script
// runs dry.
type scriptedRoller struct {
	t     *testing.T
	rolls []int
}

func (r *scriptedRoller) Between(min, max int) int {
	if len(r.rolls) == 0 {
		r.t.Fatalf("scripted roller exhausted (wanted a roll in [%d,%d])", min, max)
	}
	v := r.rolls[0]
	r.rolls = r.rolls[1:]
	return v
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustParseStory(t *testing.T, data string) *story.Story {
	t.Helper()
	s, err := story.Parse([]byte(data))
	require.NoError(t, err)
	return s
}

const resolveContent = `{
  "parts": {
    "PART_01": {
      "title": "T", "text": "x",
      "choices": [
        {
          "text": "everything",
          "next": "PART_02",
          "effects": {
            "shards": 3,
            "corruption": 120,
            "alignment": "Dark",
            "flag": "marked",
            "relationship": "aren:-5",
            "achievement": "brave",
            "inventory_add": {"id": "potion", "name": "Potion", "qty": 2},
            "inventory_remove": {"id": "torch", "name": "torch", "qty": 1}
          }
        },
        {
          "text": "risky",
          "next": "PART_02",
          "chance": 40,
          "fail_next": "PART_03",
          "effects": {"shards": 5},
          "fail_effects": {"corruption": 10}
        },
        {
          "text": "bad relationship",
          "next": "PART_02",
          "effects": {"relationship": "nonsense"}
        }
      ]
    },
    "PART_02": {"title": "T2", "text": "y", "choices": []},
    "PART_03": {"title": "T3", "text": "z", "choices": []}
  }
}`

func TestResolveChoiceAppliesEffectsInOrder(t *testing.T) {
	s := mustParseStory(t, resolveContent)
	part, _ := s.Part("PART_01")
	st := player.NewState("u", "PART_01")
	st.Corruption = 20

	roller := &scriptedRoller{t: t, rolls: []int{100, 12}} // chance roll, then XP
	res := ResolveChoice(st, &part.Choices[0], map[string]bool{}, roller, testLogger())

	assert.True(t, res.Success)
	assert.Equal(t, "PART_02", res.NextPartID)
	require.NotNil(t, res.Update.CurrentPart)
	assert.Equal(t, "PART_02", *res.Update.CurrentPart)

	require.NotNil(t, res.Update.Shards)
	assert.Equal(t, 3, *res.Update.Shards)
	require.NotNil(t, res.Update.Corruption)
	assert.Equal(t, 100, *res.Update.Corruption, "corruption must clamp at 100")
	require.NotNil(t, res.Update.Alignment)
	assert.Equal(t, player.AlignmentDark, *res.Update.Alignment)

	assert.Equal(t, 1, res.SetFlags["marked"])
	assert.Equal(t, -5, res.SetFlags["rel_aren"])
	assert.Equal(t, []string{"brave"}, res.NewAchievements)
	require.Len(t, res.AddItems, 1)
	assert.Equal(t, 2, res.AddItems[0].Quantity)
	require.Len(t, res.RemoveItems, 1)
	assert.Equal(t, "torch", res.RemoveItems[0].ID)

	assert.Equal(t, []string{
		"Shards: +3",
		"Corruption: +120",
		"Alignment = Dark",
		"Flag: marked",
		"Relationship aren: -5",
		"Gained Potion x2",
		"Lost torch x1",
		"XP: +12",
	}, res.Impact)
}

func TestResolveChoiceFailureBranch(t *testing.T) {
	s := mustParseStory(t, resolveContent)
	part, _ := s.Part("PART_01")
	st := player.NewState("u", "PART_01")

	roller := &scriptedRoller{t: t, rolls: []int{41, 10}} // roll 41 > chance 40
	res := ResolveChoice(st, &part.Choices[1], map[string]bool{}, roller, testLogger())

	assert.False(t, res.Success)
	assert.Equal(t, "PART_03", res.NextPartID, "failure routes to fail_next")
	assert.Nil(t, res.Update.Shards, "success effects must not apply on failure")
	require.NotNil(t, res.Update.Corruption)
	assert.Equal(t, 10, *res.Update.Corruption)
}

func TestResolveChoiceSuccessAtBoundary(t *testing.T) {
	s := mustParseStory(t, resolveContent)
	part, _ := s.Part("PART_01")
	st := player.NewState("u", "PART_01")

	roller := &scriptedRoller{t: t, rolls: []int{40, 10}} // roll == chance succeeds
	res := ResolveChoice(st, &part.Choices[1], map[string]bool{}, roller, testLogger())

	assert.True(t, res.Success)
	assert.Equal(t, "PART_02", res.NextPartID)
	require.NotNil(t, res.Update.Shards)
	assert.Equal(t, 5, *res.Update.Shards)
}

func TestResolveChoiceSkipsMalformedRelationship(t *testing.T) {
	s := mustParseStory(t, resolveContent)
	part, _ := s.Part("PART_01")
	st := player.NewState("u", "PART_01")

	roller := &scriptedRoller{t: t, rolls: []int{1, 10}}
	res := ResolveChoice(st, &part.Choices[2], map[string]bool{}, roller, testLogger())

	assert.Empty(t, res.SetFlags)
	assert.Equal(t, []string{"XP: +10"}, res.Impact, "malformed relationship leaves no impact line")
}

func TestResolveChoiceSkipsUnlockedAchievements(t *testing.T) {
	s := mustParseStory(t, resolveContent)
	part, _ := s.Part("PART_01")
	st := player.NewState("u", "PART_01")

	roller := &scriptedRoller{t: t, rolls: []int{1, 10}}
	res := ResolveChoice(st, &part.Choices[0], map[string]bool{"brave": true}, roller, testLogger())

	assert.Empty(t, res.NewAchievements)
}

func TestResolveChoiceXPRollover(t *testing.T) {
	s := mustParseStory(t, resolveContent)
	part, _ := s.Part("PART_01")

	st := player.NewState("u", "PART_01")
	st.XP = 95
	st.Level = 2

	roller := &scriptedRoller{t: t, rolls: []int{1, 18}}
	res := ResolveChoice(st, &part.Choices[2], map[string]bool{}, roller, testLogger())

	require.NotNil(t, res.Update.XP)
	assert.Equal(t, 13, *res.Update.XP)
	require.NotNil(t, res.Update.Level)
	assert.Equal(t, 3, *res.Update.Level)
	assert.Equal(t, 1, res.LevelsGained)
	assert.Equal(t, []string{"XP: +18", "⬆️ Level 3!"}, res.Impact)
}

func TestResolveChoiceNoLevelWithoutThreshold(t *testing.T) {
	s := mustParseStory(t, resolveContent)
	part, _ := s.Part("PART_01")

	st := player.NewState("u", "PART_01")
	st.XP = 50

	roller := &scriptedRoller{t: t, rolls: []int{1, 15}}
	res := ResolveChoice(st, &part.Choices[2], map[string]bool{}, roller, testLogger())

	require.NotNil(t, res.Update.XP)
	assert.Equal(t, 65, *res.Update.XP)
	assert.Nil(t, res.Update.Level)
	assert.Zero(t, res.LevelsGained)
}

func TestResolveChoiceDeltaFromCurrentValue(t *testing.T) {
	s := mustParseStory(t, `{
	  "parts": {
	    "PART_01": {
	      "title": "T", "text": "x",
	      "choices": [{
	        "text": "c", "next": "PART_01",
	        "effects": {"corruption": 90, "mystery": 5}
	      }]
	    }
	  }
	}`)
	part, _ := s.Part("PART_01")

	st := player.NewState("u", "PART_01")
	st.Corruption = 30

	roller := &scriptedRoller{t: t, rolls: []int{1, 10}}
	res := ResolveChoice(st, &part.Choices[0], map[string]bool{}, roller, testLogger())

	require.NotNil(t, res.Update.Corruption)
	assert.Equal(t, 100, *res.Update.Corruption)
	require.NotNil(t, res.Update.Mystery)
	assert.Equal(t, 5, *res.Update.Mystery)
}

func TestResolveChoiceIgnoresNegativeLevelDelta(t *testing.T) {
	s := mustParseStory(t, `{
	  "parts": {
	    "PART_01": {
	      "title": "T", "text": "x",
	      "choices": [{
	        "text": "c", "next": "PART_01",
	        "effects": {"level": -1, "shards": 2}
	      }]
	    }
	  }
	}`)
	part, _ := s.Part("PART_01")

	st := player.NewState("u", "PART_01")
	st.Level = 3

	roller := &scriptedRoller{t: t, rolls: []int{1, 10}}
	res := ResolveChoice(st, &part.Choices[0], map[string]bool{}, roller, testLogger())

	// Levels never go down; the other effects still land.
	assert.Nil(t, res.Update.Level)
	require.NotNil(t, res.Update.Shards)
	assert.Equal(t, 2, *res.Update.Shards)
	assert.NotContains(t, res.Impact, "Level: -1")
}

func TestParseRelationship(t *testing.T) {
	name, delta, err := parseRelationship("aren:10")
	require.NoError(t, err)
	assert.Equal(t, "aren", name)
	assert.Equal(t, 10, delta)

	name, delta, err = parseRelationship("kael: -7")
	require.NoError(t, err)
	assert.Equal(t, "kael", name)
	assert.Equal(t, -7, delta)

	_, _, err = parseRelationship("broken")
	assert.Error(t, err)
	_, _, err = parseRelationship(":5")
	assert.Error(t, err)
	_, _, err = parseRelationship("aren:lots")
	assert.Error(t, err)
}
