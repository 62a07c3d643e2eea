package dto

// State is a pointer so an explicit 0 (disabled) is distinguishable from a missing field.
type ManagerAddRequest struct {
	State *uint8 `json:"state" validate:"required,max=2"`
}

type ManagerModifyRequest struct {
	Token string `json:"token" validate:"required,len=32,alphanum"`
	State *uint8 `json:"state" validate:"required,max=2"`
}

type ManagerTokenResponse struct {
	Token string `json:"token"`
}
