package smartcar

// Token OAuth 令牌响应
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// vehiclesResponse 车辆列表响应
type vehiclesResponse struct {
	Vehicles []string `json:"vehicles"`
	Paging   struct {
		Count  int `json:"count"`
		Offset int `json:"offset"`
	} `json:"paging"`
}
