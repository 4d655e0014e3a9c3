package commands

import (
	"bytes"
	"runtime"
	"testing"
)

// withTempConfig переопределяет пользовательские каталоги на время теста,
// чтобы артефакты (токен/логин) создавались в temp.
func withTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
	return dir
}

// loggedIn сохраняет токен, как после успешного login.
func loggedIn(t *testing.T, token string) {
	t.Helper()
	withTempConfig(t)
	if err := authStore.Save(token); err != nil {
		t.Fatalf("save token: %v", err)
	}
}

// withStdoutCapture перенаправляет Out в буфер на время fn.
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}
