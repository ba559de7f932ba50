// Package extractor turns raw page text into a structured deal
// candidate via an external completion service.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dealmungchi/dealhound/helpers"
	"github.com/dealmungchi/dealhound/internal/deal"
	"github.com/dealmungchi/dealhound/logger"
	pkgerrors "github.com/dealmungchi/dealhound/pkg/errors"
)

// MaxPromptChars bounds the raw text sent to the completion service.
// One truncation constant shared by all call sites.
const MaxPromptChars = 15000

// Completer is the completion-service call. Implementations must honor
// the context deadline; a timeout is a normal failure outcome.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const promptTemplate = `Analyze the following text from a website and extract any active promotional deals or trials.

RULES:
1. If no deal is found, return {"deal_found": false}.
2. Extract the discount percentage as a float (e.g. 20.0). If it is a fixed amount off, estimate a percentage or put 0.
3. Extract the duration in DAYS (e.g. a 2-week trial = 14). Default to 30 if monthly.
4. Provide a 1-sentence summary.

TEXT TO ANALYZE:
%s

RETURN JSON ONLY (no markdown formatting, no comments):
{
  "deal_found": bool,
  "brand": string,
  "discount_value": float,
  "duration_days": int,
  "summary": string
}`

// Extractor drives the completion call and parses its output.
type Extractor struct {
	completer Completer
	timeout   time.Duration
	log       *logger.Logger
}

// New creates an extractor over the given completer.
func New(completer Completer, timeout time.Duration) *Extractor {
	return &Extractor{
		completer: completer,
		timeout:   timeout,
		log:       logger.ForExtractor(),
	}
}

// Extract sends the truncated raw text to the completion service and
// parses the response into a candidate. Any failure, transport or
// parse, yields a not-found candidate carrying a parse-error marker;
// the extractor never retries and never guesses a discount.
func (e *Extractor) Extract(ctx context.Context, rawText string) deal.DealCandidate {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(promptTemplate, helpers.Truncate(rawText, MaxPromptChars))

	response, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		e.log.Warn().Err(err).Msg("Completion call failed, treating as no deal")
		return deal.DealCandidate{
			ParseErr: pkgerrors.NewExtraction("", "completion call failed", err),
		}
	}

	candidate, err := parseCandidate(response)
	if err != nil {
		e.log.Warn().Err(err).Msg("Unparsable completion response, treating as no deal")
		return deal.DealCandidate{
			ParseErr: pkgerrors.NewExtraction("", "unparsable completion response", err),
		}
	}

	return candidate
}

// parseCandidate decodes the strict extraction contract. Markdown code
// fences are stripped first; models wrap JSON in them regardless of
// instructions.
func parseCandidate(response string) (deal.DealCandidate, error) {
	cleaned := cleanJSONBlock(response)

	var candidate deal.DealCandidate
	if err := json.Unmarshal([]byte(cleaned), &candidate); err != nil {
		return deal.DealCandidate{}, fmt.Errorf("decode candidate: %w", err)
	}
	return candidate, nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
