package dynamo

// Attribute names shared by update expressions.
const (
	fieldEnable           = "enable"
	fieldDeletedAt        = "deleted_at"
	fieldUpdatedAt        = "updated_at"
	fieldRead             = "read"
	fieldReadAt           = "read_at"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
	fieldActive           = "active"
	fieldUnmatchedBy      = "unmatched_by"
	fieldStatus           = "status"
	fieldCreatedAt        = "created_at"
)

// Global secondary indexes. Names follow <hash>[-<range>]-index and are
// created by Bootstrap.
const (
	idxUsername        = "username-index"
	idxEmail           = "email-index"
	idxGoogleSub       = "google_sub-index"
	idxEnable          = "enable-index"
	idxUserID          = "user_id-index"
	idxRefreshToken    = "refresh_token-index"
	idxDeviceUUID      = "device_uuid-index"
	idxUserCreated     = "user_id-created_at-index"
	idxUploader        = "uploaded_by_user_id-index"
	idxTarget          = "target_id-index"
	idxUserA           = "user_a_id-index"
	idxUserB           = "user_b_id-index"
	idxPIXTxID         = "pix_txid-index"
	idxUserSubmitted   = "user_id-submitted_at-index"
	idxStatusSubmitted = "status-submitted_at-index"
)
