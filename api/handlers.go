package api

import (
	"time"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, startupTime time.Time, avatarLimitMB int) *routeHandlers {
	return &routeHandlers{
		catalogHandler:      newCatalogHandler(deps.Projects),
		adminProjectHandler: newAdminProjectHandler(deps.Projects, deps.Notices),
		authHandler:         newAuthHandler(deps.Provider),
		accountHandler:      newAccountHandler(deps.Accounts, deps.Notices, avatarLimitMB),
		noticeHandler:       newNoticeHandler(deps.Notices),
		opsHandler:          newOpsHandler(deps.Database, startupTime),
	}
}
