package main

import (
	_ "github.com/dwarvesf/payments-backend/docs"
	"github.com/dwarvesf/payments-backend/internal/server"
)

// @title Payments Backend API
// @version 1.0
// @description Deposit observation and crediting service
// @BasePath /api/v1
func main() {
	server.Init()
}
