package domain

// Principal is the authenticated actor evaluated by the authorization engine.
type Principal struct {
	ID     string
	Role   Role
	Region string
	Active bool
}
