package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"yaari/pkg/schema"
)

var (
	now     = time.Date(2025, 8, 14, 21, 30, 0, 0, time.UTC)
	profile = schema.UserProfile{ID: "user_1", Name: "Rohan", Age: 27, Gender: schema.GenderMale}
)

func character(personalities ...schema.Personality) schema.Character {
	return schema.Character{
		ID:            "char_1",
		Name:          "Priya",
		Age:           24,
		Gender:        schema.GenderFemale,
		Relationship:  schema.RelGirlfriend,
		Personalities: personalities,
	}
}

func TestComposeIdentityAndDirectives(t *testing.T) {
	out := Compose(character(schema.Caring, schema.Humorous), profile, now)

	require.Contains(t, out, "You are Priya, a 24-year-old Female.")
	require.Contains(t, out, "Your relationship with the user, Rohan, is Girlfriend.")
	require.Contains(t, out, "- Name: Rohan")
	require.Contains(t, out, "- Age: 27")
	require.Contains(t, out, "**Personalities:** Caring, Humorous")
	require.Contains(t, out, now.Format("1/2/2006, 3:04:05 PM"))

	// the ten core directives, in order
	directives := []string{
		"1.  **Persona Consistency:**",
		"2.  **Language:**",
		"3.  **Unrestricted Language:**",
		"4.  **Memory & Context:**",
		"5.  **Message Length:**",
		"6.  **Questioning:**",
		"7.  **Photo Requests:**",
		"8.  **Time Awareness:**",
		"9.  **Human Imperfection:**",
		"10. **Emojis for Emotions:**",
	}
	last := -1
	for _, d := range directives {
		idx := strings.Index(out, d)
		require.Greater(t, idx, last, "directive %q missing or out of order", d)
		last = idx
	}
}

func TestComposeMissingProfileFields(t *testing.T) {
	out := Compose(character(schema.Calm), schema.UserProfile{Name: "Asha"}, now)
	require.Contains(t, out, "- Age: not specified")
	require.Contains(t, out, "- Gender: not specified")
}

func TestComposeAddenda(t *testing.T) {
	tests := []struct {
		name    string
		ch      schema.Character
		present []string
		absent  []string
	}{
		{
			name:    "no special tags",
			ch:      character(schema.Shy),
			absent:  []string{"TAX CONSULTANT MODE", "CODER MODE", "EXPERT MODE"},
			present: nil,
		},
		{
			name:    "tax consultant",
			ch:      character(schema.TaxConsultant),
			present: []string{"TAX CONSULTANT MODE"},
			absent:  []string{"CODER MODE", "EXPERT MODE"},
		},
		{
			name:    "multiple addenda compose",
			ch:      character(schema.Coder, schema.ExpertAllFields),
			present: []string{"CODER MODE", "EXPERT MODE"},
			absent:  []string{"TAX CONSULTANT MODE"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out := Compose(test.ch, profile, now)
			for _, want := range test.present {
				require.Contains(t, out, want)
			}
			for _, not := range test.absent {
				require.NotContains(t, out, not)
			}
		})
	}
}

func TestComposeCustomPersonaKeepsTagAddenda(t *testing.T) {
	ch := character(schema.TaxConsultant)
	ch.CustomPersonality = "A retired chess champion who hates small talk."

	out := Compose(ch, profile, now)
	require.Contains(t, out, "**Custom Behavior (Highest Priority):** A retired chess champion who hates small talk.")
	require.NotContains(t, out, "**Personalities:** Tax Consultant")
	// addenda trigger off the underlying tag even with custom behavior text
	require.Contains(t, out, "TAX CONSULTANT MODE")
}

func TestComposeDeterministicGivenClock(t *testing.T) {
	ch := character(schema.Flirty, schema.Coder)
	require.Equal(t, Compose(ch, profile, now), Compose(ch, profile, now))
}

func TestComposeGroup(t *testing.T) {
	members := []schema.Character{
		character(schema.Caring),
		{ID: "char_2", Name: "Kabir", Age: 30, Gender: schema.GenderMale, Relationship: schema.RelFriend, Personalities: []schema.Personality{schema.Coder}},
	}

	out := ComposeGroup(members, profile, 0, now)
	require.Contains(t, out, "**Group Chat Simulator**")
	require.Contains(t, out, "- **Priya** (Girlfriend, 24yo Female)")
	require.Contains(t, out, "- **Kabir** (Friend, 30yo Male)")
	require.Contains(t, out, "CODER MODE")
	require.Contains(t, out, "Name: Their exact message.")
	require.Contains(t, out, "No extra text/narration.")
}

func TestComposeGroupSkipWording(t *testing.T) {
	members := []schema.Character{character(schema.Calm)}

	tests := []struct {
		skips int
		want  string
	}{
		{0, "normal skip"},
		{1, "normal skip"},
		{2, "user seems unavailable"},
		{5, "user seems unavailable"},
	}
	for _, test := range tests {
		out := ComposeGroup(members, profile, test.skips, now)
		require.Contains(t, out, "If user skips repeatedly ("+test.want+")", "skips=%d", test.skips)
	}
}
