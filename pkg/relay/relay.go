// Package relay sends one chat turn upstream and streams the reply back.
// Nothing in here propagates an error to the caller: every failure mode ends
// in a terminal user-visible apology chunk instead.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"yaari/pkg/inference"
	"yaari/pkg/prompt"
	"yaari/pkg/schema"
	"yaari/pkg/search"
	"yaari/pkg/utils"
)

// Terminal strings appended to the stream instead of raising errors.
const (
	ApologyNoKey      = "API Key not configured 😣."
	ApologyError      = "Sorry, an error occurred 😣."
	SearchingNotice   = "Searching latest tax info... 📊"
	noResultsTrailer  = "\n\nNo search results; use your knowledge but note it might not be latest."
	searchCtxTemplate = "%s\n\n[Latest Search Context: %s] Use this to base your response on real-time data. Format slabs as markdown table."
	groupCtxTemplate  = "%s\n\n[Latest Tax Info: %s]"
)

// MaxHistoryTokens bounds the flattened history sent upstream; oldest turns
// are dropped first once the budget is exceeded.
const MaxHistoryTokens = 24_000

type Relay struct {
	inf    inference.Inferencer // nil means no credentials were configured
	search *search.Client
}

func New(inf inference.Inferencer, sc *search.Client) *Relay {
	return &Relay{inf: inf, search: sc}
}

// Chat runs one single-character turn. The returned string is the finalized
// reply text, which always ends in either model content or an apology.
func (r *Relay) Chat(ctx context.Context, ch schema.Character, up schema.UserProfile, history []schema.Message, latest string, onChunk func(string) error) string {
	if r.inf == nil {
		_ = onChunk(ApologyNoKey)
		return ApologyNoKey
	}

	log.Debugf("chat turn with %s: %q", ch.Name, utils.LimitStr(latest, 80))

	enhanced := latest
	if ch.HasPersonality(schema.TaxConsultant) && search.IsTaxQuery(latest) {
		// The notice is display-only; it is not part of the reply text.
		if err := onChunk(SearchingNotice); err != nil {
			return ""
		}
		enhanced = r.taxContext(ctx, latest, false)
	}

	req := inference.Request{
		System:  prompt.Compose(ch, up, time.Now()),
		History: trimHistory(singleHistory(history)),
		Latest:  enhanced,
	}

	return r.stream(ctx, req, onChunk)
}

// GroupChat runs one group turn. The full raw text is returned for the
// caller to demultiplex; per-speaker attribution happens after the stream.
func (r *Relay) GroupChat(ctx context.Context, members []schema.Character, up schema.UserProfile, history []schema.Message, latest string, consecutiveSkips int, onChunk func(string) error) string {
	if r.inf == nil {
		_ = onChunk(ApologyNoKey)
		return ApologyNoKey
	}

	enhanced := latest
	if hasTaxMember(members) && search.IsTaxQuery(latest) {
		enhanced = r.taxContext(ctx, latest, true)
	}

	req := inference.Request{
		System:  prompt.ComposeGroup(members, up, consecutiveSkips, time.Now()),
		History: trimHistory(groupHistory(history, members, up)),
		Latest:  fmt.Sprintf("User: %s\n\nContinue the group conversation following the rules and format exactly.", enhanced),
	}

	return r.stream(ctx, req, onChunk)
}

func (r *Relay) stream(ctx context.Context, req inference.Request, onChunk func(string) error) string {
	full, err := r.inf.Stream(ctx, req, onChunk)
	if err == nil {
		return full
	}
	if errors.Is(err, context.Canceled) {
		// Torn-down client; nothing left to apologize to.
		return full
	}

	log.Errorf("upstream stream failed: %v", err)
	_ = onChunk(ApologyError)
	return full + ApologyError
}

// taxContext runs the canned slab-rate search and folds the results into the
// turn text. Failures degrade to a disclaimer; they never block the turn.
func (r *Relay) taxContext(ctx context.Context, latest string, group bool) string {
	if r.search.Configured() {
		results, err := r.search.Search(ctx, search.TaxSlabQuery)
		if err == nil {
			if group {
				return fmt.Sprintf(groupCtxTemplate, latest, search.FormatResults(results))
			}
			return fmt.Sprintf(searchCtxTemplate, latest, search.FormatResults(results))
		}
		log.Warnf("tax search failed: %v", err)
	}
	if group {
		return latest
	}
	return latest + noResultsTrailer
}

func hasTaxMember(members []schema.Character) bool {
	for _, ch := range members {
		if ch.HasPersonality(schema.TaxConsultant) {
			return true
		}
	}
	return false
}

// singleHistory maps a one-on-one transcript onto the two upstream roles.
func singleHistory(history []schema.Message) []inference.Turn {
	turns := make([]inference.Turn, 0, len(history))
	for _, msg := range history {
		role := inference.RoleModel
		if msg.Sender == schema.SenderUser {
			role = inference.RoleUser
		}
		turns = append(turns, inference.Turn{Role: role, Text: msg.Text})
	}
	return turns
}

// groupHistory rewrites every turn, the user's included, as user-role text
// prefixed with the speaker's name. The upstream turn model only knows two
// roles, so N named parties are flattened into one annotated history.
func groupHistory(history []schema.Message, members []schema.Character, up schema.UserProfile) []inference.Turn {
	names := make(map[string]string, len(members))
	for _, ch := range members {
		names[ch.ID] = ch.Name
	}

	turns := make([]inference.Turn, 0, len(history))
	for _, msg := range history {
		name := "Unknown"
		if msg.Sender == schema.SenderUser {
			name = up.Name
		} else if n, ok := names[msg.Sender]; ok {
			name = n
		}
		turns = append(turns, inference.Turn{
			Role: inference.RoleUser,
			Text: fmt.Sprintf("%s: %s", name, msg.Text),
		})
	}
	return turns
}

// trimHistory drops oldest turns until the flattened text fits the budget.
func trimHistory(turns []inference.Turn) []inference.Turn {
	total := 0
	counts := make([]int, len(turns))
	for i, turn := range turns {
		n, err := utils.NumTokens(turn.Text)
		if err != nil {
			return turns
		}
		counts[i] = n
		total += n
	}

	start := 0
	for start < len(turns) && total > MaxHistoryTokens {
		total -= counts[start]
		start++
	}
	return turns[start:]
}
