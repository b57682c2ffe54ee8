package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	errUserNotFound     = "user not found"
	errUsernameTaken    = "username already exists"
	errOrgNotFound      = "organization not found"
	errOrgNameTaken     = "organization already exists"
	errMemberNotFound   = "membership not found"
	errMemberExists     = "user is already a member of this organization"
	errMemberRefMissing = "user or organization not found"
	errProjectNotFound  = "project not found"
	errStoryNotFound    = "story not found"
	errTagNotFound      = "tag or owner not found"
	errCuratorNotFound  = "curator not found"
	errTaskScopeInvalid = "invalid task scope"
	errTaskOwnerMissing = "task owner not found"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"
	errFailedApplySchemaFmt          = "failed to apply schema: %w"
	errFailedCheckTableFmt           = "failed to check table: %w"

	errFailedStartTransactionFmt  = "failed to start transaction: %w"
	errFailedCommitTransactionFmt = "failed to commit transaction: %w"

	errFailedCreateUserFmt = "failed to create user: %w"
	errFailedGetUserFmt    = "failed to get user: %w"
	errFailedListUsersFmt  = "failed to list users: %w"
	errFailedScanUserFmt   = "failed to scan user: %w"
	errFailedUpdateUserFmt = "failed to update user: %w"
	errFailedDeleteUserFmt = "failed to delete user: %w"

	errFailedCreateOrgFmt = "failed to create organization: %w"
	errFailedGetOrgFmt    = "failed to get organization: %w"
	errFailedListOrgsFmt  = "failed to list organizations: %w"
	errFailedScanOrgFmt   = "failed to scan organization: %w"
	errFailedUpdateOrgFmt = "failed to update organization: %w"
	errFailedDeleteOrgFmt = "failed to delete organization: %w"

	errFailedAddMemberFmt        = "failed to add member: %w"
	errFailedGetMemberFmt        = "failed to get member: %w"
	errFailedListMembersFmt      = "failed to list members: %w"
	errFailedScanMemberFmt       = "failed to scan member: %w"
	errFailedUpdateMemberTierFmt = "failed to update member tier: %w"
	errFailedRemoveMemberFmt     = "failed to remove member: %w"

	errFailedCreateProjectFmt = "failed to create project: %w"
	errFailedGetProjectFmt    = "failed to get project: %w"
	errFailedListProjectsFmt  = "failed to list projects: %w"
	errFailedScanProjectFmt   = "failed to scan project: %w"
	errFailedUpdateProjectFmt = "failed to update project: %w"
	errFailedDeleteProjectFmt = "failed to delete project: %w"

	errFailedCreateStoryFmt = "failed to create story: %w"
	errFailedGetStoryFmt    = "failed to get story: %w"
	errFailedListStoriesFmt = "failed to list stories: %w"
	errFailedScanStoryFmt   = "failed to scan story: %w"
	errFailedUpdateStoryFmt = "failed to update story: %w"
	errFailedDeleteStoryFmt = "failed to delete story: %w"

	errFailedGetOrCreateTagFmt = "failed to get or create tag: %w"
	errFailedAttachTagFmt      = "failed to attach tag: %w"
	errFailedListTagsFmt       = "failed to list tags: %w"
	errFailedScanTagFmt        = "failed to scan tag: %w"

	errFailedUpsertTaskFmt    = "failed to upsert task status: %w"
	errFailedListTasksFmt     = "failed to list tasks: %w"
	errFailedScanTaskFmt      = "failed to scan task: %w"
	errFailedFailStaleTaskFmt = "failed to fail stale tasks: %w"
)

var (
	errFailedAddMember            = func(err error) error { return fmt.Errorf(errFailedAddMemberFmt, err) }
	errFailedApplySchema          = func(err error) error { return fmt.Errorf(errFailedApplySchemaFmt, err) }
	errFailedAttachTag            = func(err error) error { return fmt.Errorf(errFailedAttachTagFmt, err) }
	errFailedCheckTable           = func(err error) error { return fmt.Errorf(errFailedCheckTableFmt, err) }
	errFailedCommitTransaction    = func(err error) error { return fmt.Errorf(errFailedCommitTransactionFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedCreateOrg            = func(err error) error { return fmt.Errorf(errFailedCreateOrgFmt, err) }
	errFailedCreateProject        = func(err error) error { return fmt.Errorf(errFailedCreateProjectFmt, err) }
	errFailedCreateStory          = func(err error) error { return fmt.Errorf(errFailedCreateStoryFmt, err) }
	errFailedCreateUser           = func(err error) error { return fmt.Errorf(errFailedCreateUserFmt, err) }
	errFailedDeleteOrg            = func(err error) error { return fmt.Errorf(errFailedDeleteOrgFmt, err) }
	errFailedDeleteProject        = func(err error) error { return fmt.Errorf(errFailedDeleteProjectFmt, err) }
	errFailedDeleteStory          = func(err error) error { return fmt.Errorf(errFailedDeleteStoryFmt, err) }
	errFailedDeleteUser           = func(err error) error { return fmt.Errorf(errFailedDeleteUserFmt, err) }
	errFailedFailStaleTask        = func(err error) error { return fmt.Errorf(errFailedFailStaleTaskFmt, err) }
	errFailedGetMember            = func(err error) error { return fmt.Errorf(errFailedGetMemberFmt, err) }
	errFailedGetOrCreateTag       = func(err error) error { return fmt.Errorf(errFailedGetOrCreateTagFmt, err) }
	errFailedGetOrg               = func(err error) error { return fmt.Errorf(errFailedGetOrgFmt, err) }
	errFailedGetProject           = func(err error) error { return fmt.Errorf(errFailedGetProjectFmt, err) }
	errFailedGetStory             = func(err error) error { return fmt.Errorf(errFailedGetStoryFmt, err) }
	errFailedGetUser              = func(err error) error { return fmt.Errorf(errFailedGetUserFmt, err) }
	errFailedListMembers          = func(err error) error { return fmt.Errorf(errFailedListMembersFmt, err) }
	errFailedListOrgs             = func(err error) error { return fmt.Errorf(errFailedListOrgsFmt, err) }
	errFailedListProjects         = func(err error) error { return fmt.Errorf(errFailedListProjectsFmt, err) }
	errFailedListStories          = func(err error) error { return fmt.Errorf(errFailedListStoriesFmt, err) }
	errFailedListTags             = func(err error) error { return fmt.Errorf(errFailedListTagsFmt, err) }
	errFailedListTasks            = func(err error) error { return fmt.Errorf(errFailedListTasksFmt, err) }
	errFailedListUsers            = func(err error) error { return fmt.Errorf(errFailedListUsersFmt, err) }
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedRemoveMember         = func(err error) error { return fmt.Errorf(errFailedRemoveMemberFmt, err) }
	errFailedScanMember           = func(err error) error { return fmt.Errorf(errFailedScanMemberFmt, err) }
	errFailedScanOrg              = func(err error) error { return fmt.Errorf(errFailedScanOrgFmt, err) }
	errFailedScanProject          = func(err error) error { return fmt.Errorf(errFailedScanProjectFmt, err) }
	errFailedScanStory            = func(err error) error { return fmt.Errorf(errFailedScanStoryFmt, err) }
	errFailedScanTag              = func(err error) error { return fmt.Errorf(errFailedScanTagFmt, err) }
	errFailedScanTask             = func(err error) error { return fmt.Errorf(errFailedScanTaskFmt, err) }
	errFailedScanUser             = func(err error) error { return fmt.Errorf(errFailedScanUserFmt, err) }
	errFailedStartTransaction     = func(err error) error { return fmt.Errorf(errFailedStartTransactionFmt, err) }
	errFailedUpdateMemberTier     = func(err error) error { return fmt.Errorf(errFailedUpdateMemberTierFmt, err) }
	errFailedUpdateOrg            = func(err error) error { return fmt.Errorf(errFailedUpdateOrgFmt, err) }
	errFailedUpdateProject        = func(err error) error { return fmt.Errorf(errFailedUpdateProjectFmt, err) }
	errFailedUpdateStory          = func(err error) error { return fmt.Errorf(errFailedUpdateStoryFmt, err) }
	errFailedUpdateUser           = func(err error) error { return fmt.Errorf(errFailedUpdateUserFmt, err) }
	errFailedUpsertTask           = func(err error) error { return fmt.Errorf(errFailedUpsertTaskFmt, err) }
)
