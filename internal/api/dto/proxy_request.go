package dto

// ProxyListRequest carries proxy addresses as scheme://host:port.
type ProxyListRequest struct {
	Proxies []string `json:"proxies" validate:"required,min=1,dive,required"`
}

// GetProxiesRequest is read from the query string or, when present, the JSON body.
type GetProxiesRequest struct {
	Website   string   `json:"website" validate:"required"`
	Amount    int      `json:"amount" validate:"gte=0"`
	MinRating *float64 `json:"min_rating,omitempty" validate:"omitempty,gte=0,lte=10"`
}

type ProxyEndpoint struct {
	Schema      string  `json:"schema"`
	Address     string  `json:"address"`
	Port        uint16  `json:"port"`
	Rating      float64 `json:"rating"`
	Fails       uint32  `json:"fails"`
	Blacklisted bool    `json:"blacklisted"`
	Country     string  `json:"country,omitempty"`
}
