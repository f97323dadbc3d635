package common

// Durable store keys shared by the session manager and the todo repository.
const (
	KeyUsers           = "user"
	KeyTodos           = "todos"
	KeySession         = "auth_token"
	KeyExternalSession = "external_session"
)
