package dto

type RateLimitedProxy struct {
	Address        string `json:"address"`
	RateLimitedFor uint64 `json:"ratelimited_for"` // seconds
}

type RateLimitRequest struct {
	Website string             `json:"website" validate:"required"`
	Proxies []RateLimitedProxy `json:"proxies" validate:"required,min=1"`
}
