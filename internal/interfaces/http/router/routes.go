// Package router 提供 HTTP 路由配置
package router

import (
	"z-novel-migration/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	migrationHandler *handler.MigrationHandler,
) {
	// 迁移管理
	m := v1.Group("/migration")
	{
		// 运行管理
		m.POST("/runs", migrationHandler.StartMigration)
		m.GET("/runs", migrationHandler.ListRuns)
		m.GET("/runs/:rid", migrationHandler.GetRun)

		// 进度查询
		m.GET("/progress", migrationHandler.GetProgress)

		// 回滚
		m.POST("/rollback", migrationHandler.Rollback)
		m.GET("/rollback/snapshot", migrationHandler.GetRollbackSnapshot)

		// 校验
		m.POST("/validations/:phase", migrationHandler.Validate)
	}
}
