package service

import "github.com/straye-as/enquiry-api/internal/domain"

// StageResultOf builds the structured response of a stage update
func StageResultOf(e *domain.Enquiry, err error) *domain.StageResult {
	if err != nil {
		return &domain.StageResult{
			Success:   false,
			Error:     MessageOf(err),
			ErrorCode: errorCode(err),
		}
	}
	return &domain.StageResult{
		Success:  true,
		Stage:    e.Stage,
		Status:   e.Status,
		IsLocked: e.IsLocked,
	}
}

// StatusResultOf builds the structured response of a status update
func StatusResultOf(e *domain.Enquiry, err error) *domain.StatusResult {
	if err != nil {
		return &domain.StatusResult{
			Success:   false,
			Error:     MessageOf(err),
			ErrorCode: errorCode(err),
		}
	}
	return &domain.StatusResult{Success: true, Status: e.Status}
}

// ActionResultOf builds the structured response of an operation without payload
func ActionResultOf(err error) *domain.ActionResult {
	if err != nil {
		return &domain.ActionResult{Success: false, Error: MessageOf(err), ErrorCode: errorCode(err)}
	}
	return &domain.ActionResult{Success: true}
}

// errorCode is the validation sub-kind when present, else the kind
func errorCode(err error) string {
	if code := CodeOf(err); code != "" {
		return code
	}
	return string(KindOf(err))
}
