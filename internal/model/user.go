package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor は操作を行う認証済みユーザーを表す。
// サービス層の権限判定に使う。
type Actor struct {
	Username string
	IsAdmin  bool
}

// ActorOf はユーザーから操作者情報を作る。
func ActorOf(u *User) Actor {
	return Actor{Username: u.Username, IsAdmin: u.IsAdmin}
}

// CanModify はownerが所有するレコードを変更できるかを返す。
func (a Actor) CanModify(owner string) bool {
	return a.IsAdmin || (a.Username != "" && a.Username == owner)
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
