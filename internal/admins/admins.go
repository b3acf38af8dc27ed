// Package admins declares the admins of the backoffice.
package admins

import (
	"sort"
	"strings"

	"github.com/ZJUSCT/backoffice/internal/admin"
	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/crud"
	"github.com/ZJUSCT/backoffice/internal/database"
	"github.com/ZJUSCT/backoffice/internal/database/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const blank = "This value should not be blank."

// Set is every admin of the backoffice, registered in Pool.
type Set struct {
	Pool          *admin.Pool
	Users         *admin.ModelAdmin[models.User]
	Contests      *admin.ModelAdmin[models.Contest]
	Announcements *admin.ModelAdmin[models.Announcement]
}

// Build creates the admins. roles are the role names users can be given.
func Build(deps admin.Deps, roles []string) (*Set, error) {
	roles = append([]string(nil), roles...)
	sort.Strings(roles)

	users, err := admin.New(deps, userConfig(roles))
	if err != nil {
		return nil, err
	}
	contests, err := admin.New(deps, contestConfig())
	if err != nil {
		return nil, err
	}
	announcements, err := admin.New(deps, announcementConfig(contests))
	if err != nil {
		return nil, err
	}

	pool := admin.NewPool()
	for _, a := range []crud.Admin{users, contests, announcements} {
		if err := pool.Register(a); err != nil {
			return nil, err
		}
	}
	return &Set{Pool: pool, Users: users, Contests: contests, Announcements: announcements}, nil
}

func userConfig(roles []string) admin.Config[models.User] {
	return admin.Config[models.User]{
		Code:  "user",
		Label: "Users",
		Path:  "user",
		FormFields: []admin.Field{
			{Name: "Username", Label: "Username"},
			{Name: "PlainPassword", Label: "Password", Input: admin.InputPassword, Help: "Leave blank to keep the current password."},
			{Name: "Nickname", Label: "Nickname"},
			{Name: "Email", Label: "Email", Input: admin.InputEmail},
			{Name: "Roles", Label: "Roles", Input: admin.InputChoice, Choices: roles, Multiple: true},
			{Name: "BanReason", Label: "Ban reason", Input: admin.InputTextarea},
		},
		ListFields: []admin.Field{
			{Name: "Username"},
			{Name: "Nickname"},
			{Name: "Email"},
			{Name: "Roles"},
			{Name: "BannedUntil", Label: "Banned until"},
		},
		ShowFields: []admin.Field{
			{Name: "ID"},
			{Name: "Username"},
			{Name: "Nickname"},
			{Name: "Email"},
			{Name: "Roles"},
			{Name: "BannedUntil", Label: "Banned until"},
			{Name: "BanReason", Label: "Ban reason"},
			{Name: "CreatedAt", Label: "Created"},
			{Name: "UpdatedAt", Label: "Updated"},
		},
		Filters: []admin.Filter{
			{Name: "username", Label: "Username", Column: "username", Match: "partial"},
			{Name: "email", Label: "Email", Column: "email", Match: "partial"},
		},
		OrderBy: "username asc",
		BatchActions: map[string]crud.BatchActionDescriptor{
			"ban":   {Label: "Ban", AskConfirmation: true},
			"unban": {Label: "Lift ban"},
		},
		Validate: func(db *gorm.DB, u *models.User, creating bool) map[string]string {
			errs := map[string]string{}
			if creating && u.PlainPassword == "" {
				errs["plain_password"] = blank
			}
			if u.Username != "" {
				taken, err := database.UsernameTaken(db, u.Username, u.ID)
				switch {
				case err != nil:
					zap.S().Errorf("failed to check username %s: %v", u.Username, err)
					errs[admin.FormError] = "The username could not be checked."
				case taken:
					errs["username"] = "This value is already used."
				}
			}
			for _, r := range u.Roles {
				if !contains(roles, r) {
					errs["roles"] = "The role " + r + " does not exist."
				}
			}
			return errs
		},
		BeforeSave: func(u *models.User, creating bool) error {
			if u.PlainPassword == "" {
				return nil
			}
			hash, err := auth.HashPassword(u.PlainPassword)
			if err != nil {
				return err
			}
			u.PasswordHash = hash
			u.PlainPassword = ""
			return nil
		},
	}
}

func contestConfig() admin.Config[models.Contest] {
	return admin.Config[models.Contest]{
		Code:  "contest",
		Label: "Contests",
		Path:  "contest",
		FormFields: []admin.Field{
			{Name: "Name"},
			{Name: "Description", Input: admin.InputTextarea, Help: "Markdown."},
			{Name: "StartTime", Label: "Starts", Input: admin.InputDatetime},
			{Name: "EndTime", Label: "Ends", Input: admin.InputDatetime},
		},
		ListFields: []admin.Field{
			{Name: "Name"},
			{Name: "StartTime", Label: "Starts"},
			{Name: "EndTime", Label: "Ends"},
		},
		ShowFields: []admin.Field{
			{Name: "ID"},
			{Name: "Name"},
			{Name: "Description", Markdown: true},
			{Name: "StartTime", Label: "Starts"},
			{Name: "EndTime", Label: "Ends"},
		},
		Filters: []admin.Filter{
			{Name: "name", Label: "Name", Column: "name", Match: "partial"},
		},
		OrderBy: "start_time desc",
	}
}

func announcementConfig(contests crud.Admin) admin.Config[models.Announcement] {
	return admin.Config[models.Announcement]{
		Code:         "announcement",
		Label:        "Announcements",
		Path:         "announcement",
		Parent:       contests,
		ParentColumn: "contest_id",
		FormFields: []admin.Field{
			{Name: "Title"},
			{Name: "Description", Input: admin.InputTextarea, Help: "Markdown."},
			{Name: "Published", Input: admin.InputCheckbox},
		},
		ListFields: []admin.Field{
			{Name: "Title"},
			{Name: "Published"},
			{Name: "CreatedAt", Label: "Created"},
		},
		ShowFields: []admin.Field{
			{Name: "Title"},
			{Name: "Description", Markdown: true},
			{Name: "Published"},
			{Name: "CreatedAt", Label: "Created"},
		},
		Filters: []admin.Filter{
			{Name: "title", Label: "Title", Column: "title", Match: "partial"},
			{Name: "published", Label: "Published", Column: "published", Match: "bool"},
		},
		BatchActions: map[string]crud.BatchActionDescriptor{
			"publish":   {Label: "Publish"},
			"unpublish": {Label: "Unpublish"},
		},
		Init: func(s *crud.Scope, a *models.Announcement) {
			a.ContestID = s.ParentID()
		},
		Validate: func(db *gorm.DB, a *models.Announcement, creating bool) map[string]string {
			if strings.TrimSpace(a.ContestID) == "" {
				return map[string]string{admin.FormError: "The announcement is not attached to a contest."}
			}
			return nil
		},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
