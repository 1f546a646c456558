package service

import "errors"

var (
	ErrInvalidFileType    = errors.New("only PDF documents are accepted")
	ErrFileTooLarge       = errors.New("file exceeds the maximum upload size")
	ErrUploadFailed       = errors.New("failed to upload contract")
	ErrContractNotFound   = errors.New("contract not found")
	ErrAnalysisInProgress = errors.New("analysis already in progress for this contract")
	ErrInvalidTransition  = errors.New("contract status does not allow this change")
	ErrJobNotFound        = errors.New("analysis job not found")
	ErrJobTimeout         = errors.New("analysis job did not finish in time")
	ErrDuplicateCategory  = errors.New("a category with this name already exists")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrInvalidCategory    = errors.New("category name is required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmptyMessage       = errors.New("message is required")
)
