package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrReportNotFound     = errors.New("report not found")
	ErrReviewNotAllowed   = errors.New("review not available for this attempt")
	ErrNotManuallyGraded  = errors.New("answer does not need manual grading")
)
