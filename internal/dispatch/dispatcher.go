package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"voicedesk/internal/conversation"
)

const actionInstruction = `You are the routing brain of a support assistant.
For every user message you must reply with EXACTLY ONE JSON object and nothing else.
No markdown, no code fences, no commentary.

The object has the shape:
{"action": "<name>", "args": {"<key>": "<value>"}}

Allowed actions:
- "lookup_account"  args: {"account_id": "<id>"}   look up a customer account record
- "lookup_policy"   args: {"policy_key": "<key>"}  look up a billing or support policy
- "create_ticket"   args: {"account_id": "<id>", "issue": "<short description>"}
- "respond_final"   args: {"text": "<your reply to the user>"}

Rules:
1. Choose exactly one action per turn.
2. Use "respond_final" whenever no data lookup or ticket is needed.
3. All argument values are strings. Never invent account ids or policy keys.
4. Output only the JSON object.`

const fallbackReply = "I'm sorry, I don't have an answer for that right now."

// TextClient is the slice of the text-generation boundary the dispatcher
// needs: one completion per invocation.
type TextClient interface {
	Complete(ctx context.Context, system string, history []conversation.Message, user string, temperature float64, maxTokens int64) (string, error)
}

// Store is the slice of the mock store the dispatcher can touch. At most
// one of these is called per invocation.
type Store interface {
	GetAccount(accountID string) (json.RawMessage, bool, error)
	GetPolicy(policyKey string) (json.RawMessage, bool, error)
	CreateTicket(accountID, issue string) (string, error)
}

type Dispatcher struct {
	llm   TextClient
	store Store
}

func New(llm TextClient, store Store) *Dispatcher {
	return &Dispatcher{llm: llm, store: store}
}

// RunStep asks the model for exactly one action and executes it: one model
// call, at most one store operation, no retries and no chaining. Every
// failure mode collapses into the returned reply; callers never see an
// error and the returned string is never empty.
func (d *Dispatcher) RunStep(ctx context.Context, personaPrompt string, history []conversation.Message, utterance string) string {
	system := actionInstruction
	if personaPrompt != "" {
		system += "\n\n" + personaPrompt
	}

	completion, err := d.llm.Complete(ctx, system, history, utterance, 0.7, 200)
	if err != nil {
		return fmt.Sprintf("The assistant service is unavailable right now: %v", err)
	}

	action, err := decodeAction(completion)
	if err != nil {
		var unknown *unknownActionError
		if errors.As(err, &unknown) {
			return fmt.Sprintf("The model requested an unsupported action %q with arguments %v.", unknown.Name, unknown.Args)
		}
		return fmt.Sprintf("I could not make sense of the model reply: %s", completion)
	}

	return d.execute(action)
}

// execute runs the single side effect an action asks for and renders the
// outcome as user-facing text. Missing arguments collapse to lookups of
// the empty key and take the same absent path as unknown records.
func (d *Dispatcher) execute(action Action) string {
	switch a := action.(type) {
	case LookupAccount:
		record, ok, err := d.store.GetAccount(a.AccountID)
		if err != nil {
			return fmt.Sprintf("I could not look up account %q: %v", a.AccountID, err)
		}
		if !ok {
			return fmt.Sprintf("No account found under %q.", a.AccountID)
		}
		return fmt.Sprintf("Account %s: %s", a.AccountID, record)

	case LookupPolicy:
		record, ok, err := d.store.GetPolicy(a.PolicyKey)
		if err != nil {
			return fmt.Sprintf("I could not look up policy %q: %v", a.PolicyKey, err)
		}
		if !ok {
			return fmt.Sprintf("No policy found under %q.", a.PolicyKey)
		}
		return fmt.Sprintf("Policy %s: %s", a.PolicyKey, record)

	case CreateTicket:
		confirmation, err := d.store.CreateTicket(a.AccountID, a.Issue)
		if err != nil {
			return fmt.Sprintf("I could not create the ticket: %v", err)
		}
		return fmt.Sprintf("%s Account %s, issue: %s", confirmation, a.AccountID, a.Issue)

	case RespondFinal:
		if strings.TrimSpace(a.Text) == "" {
			return fallbackReply
		}
		return a.Text
	}

	// Unreachable: decodeAction only builds the variants above.
	return fallbackReply
}
