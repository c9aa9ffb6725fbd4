package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the single structured instruction the model emits per turn.
// The variant set is closed; decodeAction refuses anything else.
type Action interface {
	isAction()
}

// LookupAccount fetches one account record by id.
type LookupAccount struct {
	AccountID string
}

// LookupPolicy fetches one policy record by key.
type LookupPolicy struct {
	PolicyKey string
}

// CreateTicket appends a support ticket for an account.
type CreateTicket struct {
	AccountID string
	Issue     string
}

// RespondFinal answers the user directly without touching the store.
type RespondFinal struct {
	Text string
}

func (LookupAccount) isAction() {}
func (LookupPolicy) isAction()  {}
func (CreateTicket) isAction()  {}
func (RespondFinal) isAction()  {}

type actionEnvelope struct {
	Action string            `json:"action"`
	Args   map[string]string `json:"args"`
}

type unknownActionError struct {
	Name string
	Args map[string]string
}

func (e *unknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Name)
}

// decodeAction parses one model completion into an Action. Decoding is
// strict: the completion must be a single JSON object with string
// arguments, and the action name must be one of the four known ones.
// There is no repair or retry; callers surface failures as reply text.
func decodeAction(completion string) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(completion)), &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	switch env.Action {
	case "lookup_account":
		return LookupAccount{AccountID: env.Args["account_id"]}, nil
	case "lookup_policy":
		return LookupPolicy{PolicyKey: env.Args["policy_key"]}, nil
	case "create_ticket":
		return CreateTicket{AccountID: env.Args["account_id"], Issue: env.Args["issue"]}, nil
	case "respond_final":
		return RespondFinal{Text: env.Args["text"]}, nil
	}
	return nil, &unknownActionError{Name: env.Action, Args: env.Args}
}
