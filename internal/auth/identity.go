package auth

// Identity is an authenticated user.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Grant is the outcome of a successful login or registration.
type Grant struct {
	Identity Identity
	Token    string
}

// LoginInput is the transient content of the login form.
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput is the transient content of the registration form.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}
