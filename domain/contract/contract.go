// Package contract defines the domain entity jointly represented in the
// ledger and the graph.
package contract

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Contract is the central entity. Name is the unique key across both
// stores. Hash is derived from Text once at creation and stored in the
// graph for integrity cross-checks; it is never recomputed on read.
type Contract struct {
	Name      string `json:"name"`
	StartDate string `json:"startdate"`
	EndDate   string `json:"enddate"`
	Location  string `json:"location"`
	Text      string `json:"text"`
	Company1  string `json:"company1"`
	Company2  string `json:"company2"`
	Title     string `json:"title"`
	Hash      string `json:"hash,omitempty"`
}

// CreateInput carries the attributes accepted by the create operation.
// Only name and text are required; the storage layer tolerates the rest
// being empty.
type CreateInput struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"startdate"`
	EndDate   string `json:"enddate"`
	Location  string `json:"location"`
	Text      string `json:"text" validate:"required"`
	Company1  string `json:"company1"`
	Company2  string `json:"company2"`
	Title     string `json:"title"`
}

var validate = validator.New()

// Validate checks the create input against its struct tags.
func (in CreateInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ToContract derives the full entity, computing the content hash.
func (in CreateInput) ToContract() Contract {
	return Contract{
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Location:  in.Location,
		Text:      in.Text,
		Company1:  in.Company1,
		Company2:  in.Company2,
		Title:     in.Title,
		Hash:      ContentHash(in.Text),
	}
}

// ContentHash is the deterministic digest of a contract's text. md5 hex
// matches the digest recorded by earlier deployments, so existing graph
// vertices still cross-check.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// LedgerArgs returns the arguments for the chaincode init_contract
// invocation, in the order the chaincode expects.
func (c Contract) LedgerArgs() []string {
	return []string{c.Name, c.StartDate, c.EndDate, c.Location, c.Text, c.Company1, c.Company2, c.Title}
}

func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var msgs []string
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
