// Package migrations 内嵌数据库迁移脚本，由 goose 在服务启动时执行
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
