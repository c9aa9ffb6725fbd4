package mockstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	accountsFile = "accounts.json"
	policiesFile = "policies.json"
	ticketsFile  = "tickets.json"
)

// Store reads and rewrites whole JSON documents under a single directory.
// Every operation loads the full file, mutates it in memory, and writes it
// back. There is no locking: concurrent ticket writers can lose updates.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) load(name string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	return doc, nil
}

func (s *Store) save(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}

// Get returns the raw record stored under key in the named document.
// A missing key is reported through ok, never as an error.
func (s *Store) Get(name, key string) (json.RawMessage, bool, error) {
	doc, err := s.load(name)
	if err != nil {
		return nil, false, err
	}
	rec, ok := doc[key]
	return rec, ok, nil
}

// Append adds record to the list stored under listKey in the named
// document and rewrites the whole file.
func (s *Store) Append(name, listKey string, record any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrapf(err, "decode %s", name)
	}
	list, _ := doc[listKey].([]any)
	doc[listKey] = append(list, record)
	return s.save(name, doc)
}

func (s *Store) GetAccount(accountID string) (json.RawMessage, bool, error) {
	return s.Get(accountsFile, accountID)
}

func (s *Store) GetPolicy(policyKey string) (json.RawMessage, bool, error) {
	return s.Get(policiesFile, policyKey)
}

// Ticket is one support ticket row in the tickets document.
type Ticket struct {
	Account     string `json:"account"`
	Issue       string `json:"issue"`
	GeneratedOn string `json:"generated_on"`
}

type ticketDoc struct {
	Tickets []Ticket `json:"tickets"`
}

// CreateTicket appends one ticket with a server-generated UTC timestamp.
func (s *Store) CreateTicket(accountID, issue string) (string, error) {
	t := Ticket{
		Account:     accountID,
		Issue:       issue,
		GeneratedOn: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Append(ticketsFile, "tickets", t); err != nil {
		return "", err
	}
	return "Ticket created.", nil
}

// Tickets returns the current contents of the tickets document.
func (s *Store) Tickets() ([]Ticket, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ticketsFile))
	if err != nil {
		return nil, errors.Wrap(err, "read tickets")
	}
	var doc ticketDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode tickets")
	}
	return doc.Tickets, nil
}
