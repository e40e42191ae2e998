package models

// Project представляет проект Azure DevOps.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Revision   int    `json:"revision"`
	Visibility string `json:"visibility"`
	State      string `json:"state"`
}

// ConnectionData ответ служебного эндпоинта ConnectionData, используется для проверки подключения.
type ConnectionData struct {
	InstanceID        string         `json:"instanceId"`
	AuthenticatedUser map[string]any `json:"authenticatedUser"`
	AuthorizedUser    map[string]any `json:"authorizedUser"`
}
