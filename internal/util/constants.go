package util

const DateFormat = "2006-01-02"

const (
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const MimeHTML = "text/html; charset=utf-8"

// gin context keys
const (
	ContextUserKey = "user"
)
