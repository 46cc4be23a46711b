package auth

import "sync"

// RevocationList はログアウト済みトークンを保持するインメモリの失効リスト。
// プロセス再起動で空になるが、その時点で未失効トークンも期限までしか使えないため
// 永続化はしない。エントリの自動削除は行わない。
type RevocationList struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
}

// NewRevocationList はRevocationListを生成する。
func NewRevocationList() *RevocationList {
	return &RevocationList{revoked: make(map[string]struct{})}
}

// Revoke はトークンを失効させる。
func (l *RevocationList) Revoke(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[token] = struct{}{}
}

// IsRevoked はトークンが失効済みかどうかを返す。
func (l *RevocationList) IsRevoked(token string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.revoked[token]
	return ok
}

// Size は失効済みトークン数を返す。メトリクス用。
func (l *RevocationList) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.revoked)
}
