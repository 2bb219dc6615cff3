package model

// Department names.  Every service type routes to exactly one of these;
// the mapping itself lives in the lifecycle package so it can be tested
// in isolation from the state machine.
const (
	DeptKitchen      = "kitchen"
	DeptLaundry      = "laundry"
	DeptHousekeeping = "housekeeping"
	DeptTransport    = "transport"
	DeptMaintenance  = "maintenance"
	DeptCare         = "care"
	DeptClinic       = "clinic"
)

// ValidDepartment reports whether name is one of the fixed departments.
func ValidDepartment(name string) bool {
	switch name {
	case DeptKitchen, DeptLaundry, DeptHousekeeping, DeptTransport,
		DeptMaintenance, DeptCare, DeptClinic:
		return true
	}
	return false
}

// Department models a row in the `departments` table.  Departments
// scope staff visibility and token consumption; NotifyEmail is the
// address the notification consumer targets when a request lands in
// the department's queue.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique department name.
//  NotifyEmail – notification target address.
type Department struct {
	ID          uint64 // departments.id
	Name        string // departments.name
	NotifyEmail string // departments.notify_email
}
