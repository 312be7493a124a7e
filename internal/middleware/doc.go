// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 目前只有身分驗證：解析 JWT 並把使用者身分放進 gin.Context，
// 後續的處理器以 UserID 取出。
package middleware
