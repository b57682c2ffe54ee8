package handler

import (
	"net/http"
	"strconv"
	"strings"

	"commonthread/internal/auth"
	"commonthread/internal/domain/user"
	apperrors "commonthread/pkg/errors"
	"commonthread/pkg/validator"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	users     UserRepository
	orgs      OrgLister
	hasher    PasswordHasher
	presigner Presigner
	buckets   Buckets
}

func NewUserHandler(users UserRepository, orgs OrgLister, hasher PasswordHasher, presigner Presigner, buckets Buckets) *UserHandler {
	return &UserHandler{
		users:     users,
		orgs:      orgs,
		hasher:    hasher,
		presigner: presigner,
		buckets:   buckets,
	}
}

type CreateUserRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	City      string `json:"city"`
	Bio       string `json:"bio"`
	Position  string `json:"position"`
}

type EditUserRequest struct {
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	Name      *string `json:"name"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	City      *string `json:"city"`
	Bio       *string `json:"bio"`
	Position  *string `json:"position"`
}

type UserOrgResponse struct {
	OrgID          string `json:"org_id"`
	OrgName        string `json:"org_name"`
	ProfilePicPath string `json:"org_profile_pic_path"`
	Access         string `json:"access"`
}

// UserResponse keeps the capitalized keys existing clients read.
type UserResponse struct {
	UserID         int64             `json:"user_id"`
	Username       string            `json:"username"`
	Name           string            `json:"name"`
	FirstName      string            `json:"First_name"`
	LastName       string            `json:"Last_name"`
	Email          string            `json:"Email"`
	City           string            `json:"City"`
	Bio            string            `json:"Bio"`
	Position       string            `json:"Position"`
	ProfilePicPath string            `json:"Profile_pic_path"`
	Orgs           []UserOrgResponse `json:"orgs"`
}

func (h *UserHandler) Create(c echo.Context) error {
	var req CreateUserRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return respondError(c, http.StatusBadRequest, apperrors.CodeMissingField, msgMissingCredentials)
	}
	if err := validator.Username(req.Username); err != nil {
		return handleError(c, invalidField(err))
	}
	if err := validator.Password(req.Password); err != nil {
		return handleError(c, invalidField(err))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Email(req.Email); err != nil {
		return handleError(c, invalidField(err))
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		return handleError(c, apperrors.InternalServer(msgInternal, err))
	}

	u, err := h.users.Create(c.Request().Context(), user.CreateUserInput{
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		City:         req.City,
		Bio:          req.Bio,
		Position:     req.Position,
	})
	if err != nil {
		return handleError(c, err)
	}

	return respondSuccess(c, http.StatusCreated, map[string]interface{}{paramUserID: u.ID})
}

// Me returns the caller's profile and the organizations they belong to.
func (h *UserHandler) Me(c echo.Context) error {
	principalID, err := auth.GetPrincipalID(c)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	u, err := h.users.GetByID(ctx, principalID)
	if err != nil {
		return handleError(c, err)
	}

	summaries, err := h.orgs.ListForUser(ctx, principalID)
	if err != nil {
		return handleError(c, err)
	}

	orgs := make([]UserOrgResponse, 0, len(summaries))
	for _, s := range summaries {
		orgs = append(orgs, UserOrgResponse{
			OrgID:          strconv.FormatInt(s.ID, 10),
			OrgName:        s.Name,
			ProfilePicPath: downloadURL(c, h.presigner, h.buckets.OrgProfiles, s.ProfileKey),
			Access:         string(s.Tier),
		})
	}

	return c.JSON(http.StatusOK, UserResponse{
		UserID:         u.ID,
		Username:       u.Username,
		Name:           u.Name,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		City:           u.City,
		Bio:            u.Bio,
		Position:       u.Position,
		ProfilePicPath: downloadURL(c, h.presigner, h.buckets.UserProfiles, u.ProfileKey),
		Orgs:           orgs,
	})
}

func (h *UserHandler) Edit(c echo.Context) error {
	id, err := pathID(c, paramUserID)
	if err != nil {
		return handleError(c, err)
	}

	var req EditUserRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleError(c, err)
	}

	input := user.UpdateUserInput{
		Name:      req.Name,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		City:      req.City,
		Bio:       req.Bio,
		Position:  req.Position,
	}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if err := validator.Username(name); err != nil {
			return handleError(c, invalidField(err))
		}
		input.Username = &name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := validator.Email(email); err != nil {
			return handleError(c, invalidField(err))
		}
		input.Email = &email
	}
	if req.Password != nil {
		if err := validator.Password(*req.Password); err != nil {
			return handleError(c, invalidField(err))
		}
		hash, err := h.hasher.Hash(*req.Password)
		if err != nil {
			return handleError(c, apperrors.InternalServer(msgInternal, err))
		}
		input.PasswordHash = &hash
	}

	if err := h.users.Update(c.Request().Context(), id, input); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, paramUserID)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		return handleError(c, err)
	}
	return respondSuccess(c, http.StatusOK, nil)
}
