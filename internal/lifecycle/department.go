package lifecycle

import "github.com/trexoil/edenlivingweb-sub000/internal/model"

// departmentByType maps each service type to the department whose
// staff may act on it. The mapping is deliberately a standalone pure
// function rather than a branch inside the state machine so it can be
// changed and tested without touching transition logic.
var departmentByType = map[string]string{
	model.ServiceMeal:           model.DeptKitchen,
	model.ServiceLaundry:        model.DeptLaundry,
	model.ServiceHousekeeping:   model.DeptHousekeeping,
	model.ServiceTransportation: model.DeptTransport,
	model.ServiceMaintenance:    model.DeptMaintenance,
	model.ServiceHomeCare:       model.DeptCare,
	model.ServiceMedical:        model.DeptClinic,
}

// DepartmentFor returns the department responsible for a service type.
// Unknown types route to the kitchen, mirroring the pricing table's
// default; in practice types are validated before this is reached.
func DepartmentFor(serviceType string) string {
	if d, ok := departmentByType[serviceType]; ok {
		return d
	}
	return model.DeptKitchen
}
