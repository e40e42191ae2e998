package services

// Относительные адреса REST API Azure DevOps.
const (
	apiVersionSuffix = "?api-version=7.0"

	apisURL               = "/_apis/"
	apiConnectionDataURL  = apisURL + "ConnectionData"
	apiProjectsURL        = apisURL + "projects" + apiVersionSuffix
	apiWorkItemsEndpoint  = apisURL + "wit/workitems"
	apiWorkItemsURL       = apiWorkItemsEndpoint + apiVersionSuffix
	apiWorkItemTypesEndpt = apisURL + "wit/workitemtypes"
	apiWorkItemTypesURL   = apiWorkItemTypesEndpt + apiVersionSuffix
	apiFieldsURL          = apisURL + "wit/fields" + apiVersionSuffix
	apiIterationsURL      = apisURL + "work/teamsettings/iterations" + apiVersionSuffix
	apiWIQLURL            = apisURL + "wit/wiql" + apiVersionSuffix

	workItemEditPath = "/_workitems/edit/"

	// BatchSize максимальное число элементов в одном запросе по идентификаторам.
	BatchSize = 200

	createdWorkItemTitle = "Work Item created from PPM"
)
