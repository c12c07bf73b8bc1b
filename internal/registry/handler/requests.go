package handler

import (
	"roster/internal/registry/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

// AddMemberRequest is the body of POST /registries/{kind}/members.
type AddMemberRequest struct {
	Account string `json:"account"`

	parsedAccount id.AccountID
}

// Validate implements httputil.Validatable.
func (r *AddMemberRequest) Validate() error {
	account, err := id.ParseAccountID(r.Account)
	if err != nil {
		return err
	}
	r.parsedAccount = account
	return nil
}

func (r *AddMemberRequest) ParsedAccount() id.AccountID {
	return r.parsedAccount
}

func parseIndexParam(raw string) (models.Index, error) {
	index, err := models.ParseIndex(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "index must be an unsigned 32-bit integer")
	}
	return index, nil
}
