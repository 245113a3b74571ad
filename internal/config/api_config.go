package config

const apiBaseURLVar = "API_BASE_URL"

type APIConfig interface {
	GetAPIBaseURL() string
}

type API struct {
	file *fileValues
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, orDefault(a.file.API.BaseURL, "http://localhost:3000/api/"))
}
