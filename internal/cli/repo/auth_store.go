package repo

// AuthStore - абстракция хранилища сессии CLI: auth-токен и последний логин.
type AuthStore interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
	SaveLogin(login string) error
	LoadLogin() (string, error)
}
