package handler

import "time"

const (
	jsonKeySuccess = "success"

	paramUserID    = "user_id"
	paramOrgID     = "org_id"
	paramProjectID = "project_id"
	paramStoryID   = "story_id"

	queryOrgID     = "org_id"
	queryProjectID = "project_id"
	queryStoryID   = "story_id"
	queryUserID    = "user_id"

	profileContentType = "image/png"
	profileKeyFmt      = "orgs/images/%d"
	profileFilename    = "profile.png"

	mediaURLExpiration   = time.Hour
	uploadURLExpiration  = time.Hour
	maxTagsPerCollection = 50

	fieldUserMessage   = "user_message"
	chatStorySeparator = "\n\n"
)

const (
	msgMissingCredentials   = "username and password are required"
	msgMissingRefreshToken  = "refresh_token is required"
	msgRefreshExpired       = "refresh token expired"
	msgRefreshInvalid       = "invalid refresh token"
	msgContentTypeJSON      = "Content-Type must be application/json"
	msgInvalidRequestBody   = "invalid JSON body"
	msgInvalidIDFmt         = "invalid %s"
	msgMissingFieldFmt      = "%s is required"
	msgInternal             = "internal server error"
	msgQueueFailure         = "failed to submit ML tasks"
	msgChatUnavailable      = "chat service unavailable"
	msgExactlyOneFilter     = "exactly one of org_id, project_id, story_id or user_id is required"
	msgTooManyTagsFmt       = "at most %d tags are allowed"
	msgNoContent            = "story has neither audio nor text to process"
	msgNoUpdates            = "no fields to update"
	msgAccessUpdated        = "Access level updated."
	msgBadTier              = "invalid access level"
	msgCannotGrantCreator   = "the creator tier cannot be granted"
	msgCannotChangeCreator  = "the creator's access level cannot be changed"
	msgCannotRemoveCreator  = "the creator cannot be removed from the organization"
	msgOrgMismatch          = "project does not belong to this organization"
	msgResourceMismatchFmt  = "%s does not match the authorized resource"
	msgTargetUserRequired   = "target_user_id and new_access are required"
	msgMembershipUserNeeded = "user_id is required"
)

const (
	logEnqueueFailedFmt = "ML enqueue for story %d failed: %v"
	logPresignFailedFmt = "presign %s/%s failed: %v"
	logInternalErrorFmt = "%s %s: %v"
)
