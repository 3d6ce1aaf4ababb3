package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// reconnectDelay 首次连接失败后延迟重试的等待时间
const reconnectDelay = 3 * time.Second

// InitMySQL 建立数据库连接
// 启动阶段连接失败时延迟重试一次，仍失败则交给调用方处理
func InitMySQL(host string, port int, user, password, dbName string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbName)

	// TranslateError 让唯一索引冲突在各驱动下统一为 gorm.ErrDuplicatedKey
	connection, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		time.Sleep(reconnectDelay)
		connection, err = gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("数据库连接失败: %v", err)
		}
	}

	return connection, nil
}
