package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"commonthread/internal/auth"
	"commonthread/internal/domain/org"
	"commonthread/internal/domain/user"
	"commonthread/internal/storage/s3"
	apperrors "commonthread/pkg/errors"
	"commonthread/pkg/validator"

	"github.com/labstack/echo/v4"
)

type OrgHandler struct {
	tx          TxRunner
	orgs        OrgRepository
	memberships MembershipRepository
	projects    ProjectRepository
	users       UserLookup
	tiers       TierParser
	presigner   Presigner
	buckets     Buckets
}

func NewOrgHandler(tx TxRunner, orgs OrgRepository, memberships MembershipRepository, projects ProjectRepository, users UserLookup, tiers TierParser, presigner Presigner, buckets Buckets) *OrgHandler {
	return &OrgHandler{
		tx:          tx,
		orgs:        orgs,
		memberships: memberships,
		projects:    projects,
		users:       users,
		tiers:       tiers,
		presigner:   presigner,
		buckets:     buckets,
	}
}

type CreateOrgRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Profile asks for a presigned upload URL for the profile picture.
	Profile bool `json:"profile"`
	// UserID is accepted from older clients and ignored; the caller always
	// becomes the creator.
	UserID flexibleID `json:"user_id"`
}

type EditOrgRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type UpdateAccessRequest struct {
	TargetUserID flexibleID `json:"target_user_id"`
	NewAccess    string     `json:"new_access"`
}

type AddMemberRequest struct {
	UserID flexibleID `json:"user_id"`
	OrgID  flexibleID `json:"org_id"`
	Access string     `json:"access"`
}

type RemoveMemberRequest struct {
	UserID flexibleID `json:"user_id"`
	OrgID  flexibleID `json:"org_id"`
}

type OrgUserResponse struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position string `json:"position"`
	Access   string `json:"access"`
}

type OrgResponse struct {
	OrgID          int64             `json:"org_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	ProfilePicPath string            `json:"profile_pic_path"`
	ProjectCount   int               `json:"project_count"`
	StoryCount     int               `json:"story_count"`
	Users          []OrgUserResponse `json:"users"`
}

type OrgMemberResponse struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Access   string `json:"access"`
}

type OrgAdminResponse struct {
	OrgID             int64               `json:"org_id"`
	OrganizationUsers []OrgMemberResponse `json:"organization_users"`
}

type OrgProjectResponse struct {
	ProjectID   int64  `json:"project_id"`
	ProjectName string `json:"project_name"`
	StoryCount  int    `json:"story_count"`
}

type OrgProjectsResponse struct {
	OrgID          int64                `json:"org_id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	ProfilePicPath string               `json:"profile_pic_path"`
	ProjectCount   int                  `json:"project_count"`
	Projects       []OrgProjectResponse `json:"projects"`
}

// Create registers an organization with the caller as its creator.
func (h *OrgHandler) Create(c echo.Context) error {
	principalID, err := auth.GetPrincipalID(c)
	if err != nil {
		return handleError(c, err)
	}

	var req CreateOrgRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := validator.OrgName(req.Name); err != nil {
		return handleError(c, apperrors.Validation(apperrors.CodeMissingField, err.Error()))
	}

	ctx := c.Request().Context()
	var created *org.Organization
	err = h.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := h.orgs.Create(ctx, org.CreateOrgInput{
			Name:        req.Name,
			Description: req.Description,
			CreatorID:   principalID,
		})
		if err != nil {
			return err
		}
		if err := h.memberships.Add(ctx, org.Membership{UserID: principalID, OrgID: o.ID, Tier: org.TierCreator}); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return handleError(c, err)
	}

	var upload *s3.Presigned
	if req.Profile {
		upload = h.profileUpload(c, created.ID)
	}

	return respondSuccess(c, http.StatusCreated, map[string]interface{}{
		paramOrgID: created.ID,
		"upload":   upload,
	})
}

// profileUpload presigns a profile picture upload and records the key. A
// failure leaves the organization without a picture.
func (h *OrgHandler) profileUpload(c echo.Context, orgID int64) *s3.Presigned {
	ctx := c.Request().Context()
	key := s3.NewObjectKey(fmt.Sprintf(profileKeyFmt, orgID), profileFilename)

	p, err := uploadURL(ctx, h.presigner, h.buckets.OrgProfiles, key, profileContentType)
	if err != nil {
		c.Logger().Errorf(logPresignFailedFmt, h.buckets.OrgProfiles, key, err)
		return nil
	}
	if err := h.orgs.Update(ctx, orgID, org.UpdateOrgInput{ProfileKey: &key}); err != nil {
		c.Logger().Errorf(logInternalErrorFmt, c.Request().Method, c.Path(), err)
		return nil
	}
	return p
}

func (h *OrgHandler) Get(c echo.Context) error {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	o, err := h.orgs.GetByID(ctx, orgID)
	if err != nil {
		return handleError(c, err)
	}

	listings, err := h.projects.ListByOrg(ctx, orgID)
	if err != nil {
		return handleError(c, err)
	}
	stories := 0
	for _, l := range listings {
		stories += l.StoryCount
	}

	members, err := h.memberships.ListMembers(ctx, orgID)
	if err != nil {
		return handleError(c, err)
	}
	details, err := h.userDetails(ctx, members)
	if err != nil {
		return handleError(c, err)
	}

	users := make([]OrgUserResponse, 0, len(members))
	for _, m := range members {
		resp := OrgUserResponse{UserID: m.UserID, Name: m.UserName, Access: string(m.Tier)}
		if u, ok := details[m.UserID]; ok {
			resp.Email = u.Email
			resp.Position = u.Position
		}
		users = append(users, resp)
	}

	return c.JSON(http.StatusOK, OrgResponse{
		OrgID:          o.ID,
		Name:           o.Name,
		Description:    o.Description,
		ProfilePicPath: downloadURL(c, h.presigner, h.buckets.OrgProfiles, o.ProfileKey),
		ProjectCount:   len(listings),
		StoryCount:     stories,
		Users:          users,
	})
}

func (h *OrgHandler) userDetails(ctx context.Context, members []org.Member) (map[int64]*user.User, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := h.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*user.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// ListMembers answers GET /org/:org_id/admin.
func (h *OrgHandler) ListMembers(c echo.Context) error {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return handleError(c, err)
	}

	members, err := h.memberships.ListMembers(c.Request().Context(), orgID)
	if err != nil {
		return handleError(c, err)
	}

	out := make([]OrgMemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, OrgMemberResponse{UserID: m.UserID, UserName: m.UserName, Access: string(m.Tier)})
	}
	return c.JSON(http.StatusOK, OrgAdminResponse{OrgID: orgID, OrganizationUsers: out})
}

// UpdateAccess answers POST /org/:org_id/admin. The creator tier is never
// granted or taken away here.
func (h *OrgHandler) UpdateAccess(c echo.Context) error {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return handleError(c, err)
	}

	var req UpdateAccessRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.TargetUserID.value() <= 0 || strings.TrimSpace(req.NewAccess) == "" {
		return respondError(c, http.StatusBadRequest, apperrors.CodeMissingField, msgTargetUserRequired)
	}

	tier, err := h.grantableTier(req.NewAccess)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	target := req.TargetUserID.value()
	current, err := h.memberships.Get(ctx, orgID, target)
	if err != nil {
		return handleError(c, err)
	}
	if current.Tier == org.TierCreator {
		return respondError(c, http.StatusForbidden, apperrors.CodeForbidden, msgCannotChangeCreator)
	}

	if err := h.memberships.UpdateTier(ctx, orgID, target, tier); err != nil {
		return handleError(c, err)
	}

	return respondSuccess(c, http.StatusOK, map[string]interface{}{
		"message":    msgAccessUpdated,
		"user_id":    target,
		"new_access": string(tier),
	})
}

func (h *OrgHandler) grantableTier(value string) (org.Tier, error) {
	tier, err := h.tiers.ParseTier(strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return "", apperrors.Validation(apperrors.CodeBadRequest, msgBadTier)
	}
	if tier == org.TierCreator {
		return "", apperrors.Forbidden(msgCannotGrantCreator)
	}
	return tier, nil
}

func (h *OrgHandler) Edit(c echo.Context) error {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return handleError(c, err)
	}

	var req EditOrgRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.Name == nil && req.Description == nil {
		return respondError(c, http.StatusBadRequest, apperrors.CodeMissingField, msgNoUpdates)
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validator.OrgName(name); err != nil {
			return handleError(c, invalidField(err))
		}
		req.Name = &name
	}

	if err := h.orgs.Update(c.Request().Context(), orgID, org.UpdateOrgInput{
		Name:        req.Name,
		Description: req.Description,
	}); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}

func (h *OrgHandler) Delete(c echo.Context) error {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.orgs.Delete(c.Request().Context(), orgID); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}

// AddMember adds an existing user to the organization, as a visitor unless
// access names another grantable tier.
func (h *OrgHandler) AddMember(c echo.Context) error {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return handleError(c, err)
	}

	var req AddMemberRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.UserID.value() <= 0 {
		return respondError(c, http.StatusBadRequest, apperrors.CodeMissingField, msgMembershipUserNeeded)
	}
	if req.OrgID.value() != 0 && req.OrgID.value() != orgID {
		return respondError(c, http.StatusBadRequest, apperrors.CodeBadRequest, fmt.Sprintf(msgInvalidIDFmt, paramOrgID))
	}

	tier := org.TierVisitor
	if strings.TrimSpace(req.Access) != "" {
		if tier, err = h.grantableTier(req.Access); err != nil {
			return handleError(c, err)
		}
	}

	if err := h.memberships.Add(c.Request().Context(), org.Membership{
		UserID: req.UserID.value(),
		OrgID:  orgID,
		Tier:   tier,
	}); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusCreated, nil)
}

func (h *OrgHandler) RemoveMember(c echo.Context) error {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return handleError(c, err)
	}

	var req RemoveMemberRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.UserID.value() <= 0 {
		return respondError(c, http.StatusBadRequest, apperrors.CodeMissingField, msgMembershipUserNeeded)
	}

	ctx := c.Request().Context()
	m, err := h.memberships.Get(ctx, orgID, req.UserID.value())
	if err != nil {
		return handleError(c, err)
	}
	if m.Tier == org.TierCreator {
		return respondError(c, http.StatusForbidden, apperrors.CodeForbidden, msgCannotRemoveCreator)
	}

	if err := h.memberships.Remove(ctx, orgID, m.UserID); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}

func (h *OrgHandler) Projects(c echo.Context) error {
	orgID, err := pathID(c, paramOrgID)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	o, err := h.orgs.GetByID(ctx, orgID)
	if err != nil {
		return handleError(c, err)
	}

	listings, err := h.projects.ListByOrg(ctx, orgID)
	if err != nil {
		return handleError(c, err)
	}

	projects := make([]OrgProjectResponse, 0, len(listings))
	for _, l := range listings {
		projects = append(projects, OrgProjectResponse{
			ProjectID:   l.Project.ID,
			ProjectName: l.Project.Name,
			StoryCount:  l.StoryCount,
		})
	}

	return c.JSON(http.StatusOK, OrgProjectsResponse{
		OrgID:          o.ID,
		Name:           o.Name,
		Description:    o.Description,
		ProfilePicPath: downloadURL(c, h.presigner, h.buckets.OrgProfiles, o.ProfileKey),
		ProjectCount:   len(listings),
		Projects:       projects,
	})
}
