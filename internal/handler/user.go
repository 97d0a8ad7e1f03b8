package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskify/internal/audit"
	"github.com/iliyamo/taskify/internal/config"
	"github.com/iliyamo/taskify/internal/queue"
	"github.com/iliyamo/taskify/internal/repository"
	"github.com/iliyamo/taskify/internal/storage"
	"github.com/iliyamo/taskify/internal/utils"
)

// UserHandler owns account registration and profile management.
type UserHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Uploader storage.Uploader
	Audit    audit.Recorder
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo, up storage.Uploader, rec audit.Recorder) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u, Uploader: up, Audit: rec}
}

// userJSON shapes a user for responses, never exposing the password hash.
func userJSON(u repository.User) echo.Map {
	m := echo.Map{
		"id":            u.ID,
		"full_name":     u.FullName,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"email":         u.Email,
		"is_active":     u.IsActive,
		"created_at":    u.CreatedAt,
		"updated_at":    u.UpdatedAt,
		"phone_number":  nil,
		"dob":           nil,
		"age":           nil,
		"profile_image": nil,
	}
	if u.PhoneNumber.Valid {
		m["phone_number"] = u.PhoneNumber.String
	}
	if u.DOB.Valid {
		m["dob"] = u.DOB.Time.Format("2006-01-02")
	}
	if u.Age.Valid {
		m["age"] = u.Age.Int32
	}
	if u.ProfileImage.Valid {
		m["profile_image"] = u.ProfileImage.String
	}
	return m
}

// Create registers a new account from a multipart form. The date of birth
// must put the user at 18 or older, and the password has to pass strength
// checks before it is hashed.
func (h *UserHandler) Create(c echo.Context) error {
	firstName := strings.TrimSpace(c.FormValue("first_name"))
	lastName := strings.TrimSpace(c.FormValue("last_name"))
	fullName := strings.TrimSpace(c.FormValue("full_name"))
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	phone := strings.TrimSpace(c.FormValue("phone_number"))
	password := c.FormValue("password")
	dobRaw := strings.TrimSpace(c.FormValue("dob"))

	if fullName == "" {
		fullName = strings.TrimSpace(firstName + " " + lastName)
	}
	if fullName == "" || email == "" || password == "" {
		return fail(c, http.StatusUnprocessableEntity, "full_name, email and password are required", "VALIDATION_ERROR")
	}
	if !strings.Contains(email, "@") {
		return fail(c, http.StatusUnprocessableEntity, "email: invalid email address", "VALIDATION_ERROR")
	}
	if msg, err := utils.ValidatePassword(password); err != nil {
		return fail(c, http.StatusUnprocessableEntity, msg, "VALIDATION_ERROR")
	}

	u := repository.User{
		FullName:  fullName,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		IsActive:  true,
	}
	if phone != "" {
		u.PhoneNumber.String, u.PhoneNumber.Valid = phone, true
	}
	if dobRaw != "" {
		dob, err := time.Parse("2006-01-02", dobRaw)
		if err != nil {
			return fail(c, http.StatusUnprocessableEntity, "dob: expected YYYY-MM-DD", "VALIDATION_ERROR")
		}
		age := yearsSince(dob, time.Now().UTC())
		if age < 18 {
			return fail(c, http.StatusUnprocessableEntity, "You must be at least 18 years old to register", "VALIDATION_ERROR")
		}
		u.DOB.Time, u.DOB.Valid = dob, true
		u.Age.Int32, u.Age.Valid = int32(age), true
	}

	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to hash password", err.Error())
	}
	u.PasswordHash = hash

	ctx, cancel := reqCtx(c)
	defer cancel()

	// Optional profile image. Upload failures abort registration so we
	// never store a dangling image URL.
	if file, err := c.FormFile("profile_image"); err == nil && h.Uploader != nil {
		src, err := file.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "profile_image: unreadable file", "VALIDATION_ERROR")
		}
		defer src.Close()
		url, err := h.Uploader.Upload(ctx, src, "profiles", file.Filename, file.Header.Get("Content-Type"))
		if err != nil {
			return fail(c, http.StatusInternalServerError, "Failed to store profile image", err.Error())
		}
		u.ProfileImage.String, u.ProfileImage.Valid = url, true
	}

	if _, err := h.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "Email already registered", "Conflict")
		}
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}

	h.Audit.Record(ctx, audit.Entry{
		Table: "auth_users", RecordID: u.ID, Action: "INSERT",
		Changes: map[string]any{"email": u.Email, "full_name": u.FullName},
		ActorID: u.ID, SourceIP: clientIP(c),
	})

	// Fire-and-forget welcome mail via the broker; registration succeeds
	// even when the broker is down.
	if h.Cfg.AMQPURL != "" {
		evt := queue.UserRegisteredEvent{
			UserID: u.ID, Email: u.Email, FullName: u.FullName,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer pcancel()
			_ = queue.Publish(pctx, h.Cfg.AMQPURL, queue.UserRegisteredQueue, evt)
		}()
	}

	return ok(c, http.StatusCreated, "User created successfully", userJSON(u))
}

// List returns all users, newest first.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Unexpected error occurred", err.Error())
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON(u))
	}
	return ok(c, http.StatusOK, "Users fetched successfully", out)
}

// Get returns a single user by id.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "User not found", "")
	}
	return ok(c, http.StatusOK, "User fetched successfully", userJSON(u))
}

// Update modifies the caller's own profile from a multipart form. Updating
// anyone else is forbidden regardless of whether the target exists. All
// fields are optional; the full name is rebuilt whenever either name part
// changes, and a profile image replacement must upload before anything is
// persisted.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}
	if id != getUserID(c) {
		return fail(c, http.StatusForbidden, "You can only update your own account", "Forbidden")
	}

	params, err := c.FormParams()
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "body: invalid form body", "VALIDATION_ERROR")
	}
	field := func(name string) (string, bool) {
		vs, present := params[name]
		if !present || len(vs) == 0 {
			return "", false
		}
		return strings.TrimSpace(vs[0]), true
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "User not found", "")
	}

	changes := map[string]any{}
	if v, set := field("first_name"); set {
		u.FirstName = v
		changes["first_name"] = v
	}
	if v, set := field("last_name"); set {
		u.LastName = v
		changes["last_name"] = v
	}
	_, firstSet := changes["first_name"]
	_, lastSet := changes["last_name"]
	if firstSet || lastSet {
		u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
		changes["full_name"] = u.FullName
	}
	if v, set := field("phone_number"); set {
		u.PhoneNumber.String, u.PhoneNumber.Valid = v, v != ""
		changes["phone_number"] = v
	}
	if v, set := field("dob"); set {
		dob, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fail(c, http.StatusUnprocessableEntity, "dob: expected YYYY-MM-DD", "VALIDATION_ERROR")
		}
		age := yearsSince(dob, time.Now().UTC())
		if age < 18 {
			return fail(c, http.StatusUnprocessableEntity, "You must be at least 18 years old", "VALIDATION_ERROR")
		}
		u.DOB.Time, u.DOB.Valid = dob, true
		u.Age.Int32, u.Age.Valid = int32(age), true
		changes["dob"] = v
	}

	// Optional replacement image. As with registration, the upload has to
	// succeed before the row is touched so the stored URL always resolves.
	if file, err := c.FormFile("profile_image"); err == nil && h.Uploader != nil {
		src, err := file.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "profile_image: unreadable file", "VALIDATION_ERROR")
		}
		defer src.Close()
		url, err := h.Uploader.Upload(ctx, src, "profiles", file.Filename, file.Header.Get("Content-Type"))
		if err != nil {
			return fail(c, http.StatusInternalServerError, "Failed to store profile image", err.Error())
		}
		u.ProfileImage.String, u.ProfileImage.Valid = url, true
		changes["profile_image"] = url
	}

	if len(changes) == 0 {
		return fail(c, http.StatusUnprocessableEntity, "no fields to update", "VALIDATION_ERROR")
	}

	if err := h.Users.Update(ctx, &u); err != nil {
		return repoError(c, err, "User not found", "")
	}

	h.Audit.Record(ctx, audit.Entry{
		Table: "auth_users", RecordID: u.ID, Action: "UPDATE",
		Changes: changes, ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "User updated successfully", userJSON(u))
}

// Delete removes the caller's own account.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "id: must be a positive integer", "VALIDATION_ERROR")
	}
	if id != getUserID(c) {
		return fail(c, http.StatusForbidden, "You can only delete your own account", "Forbidden")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return repoError(c, err, "User not found", "")
	}
	h.Audit.Record(ctx, audit.Entry{
		Table: "auth_users", RecordID: id, Action: "DELETE",
		ActorID: getUserID(c), SourceIP: clientIP(c),
	})
	return ok(c, http.StatusOK, "User deleted successfully", nil)
}

// yearsSince computes completed years between dob and now.
func yearsSince(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
