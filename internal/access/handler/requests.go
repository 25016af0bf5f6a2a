package handler

import (
	"strings"

	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
)

// DataAccessRequest is the body of POST /data-access. AppID is accepted for
// compatibility but the authenticated application always wins.
type DataAccessRequest struct {
	UserID   string `json:"user_id"`
	AppID    string `json:"app_id,omitempty"`
	DataType string `json:"data_type"`
	Purpose  string `json:"purpose"`
}

func (r *DataAccessRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	var err error
	if r.UserID, err = id.ParseLabel("user_id", r.UserID); err != nil {
		return err
	}
	if r.DataType, err = id.ParseLabel("data_type", r.DataType); err != nil {
		return err
	}
	if r.Purpose, err = id.ParseLabel("purpose", r.Purpose); err != nil {
		return err
	}
	r.AppID = strings.TrimSpace(r.AppID)
	return nil
}
