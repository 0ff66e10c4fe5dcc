package contracts

// Label is a root-cause category assigned to a failed build by the labeling layer.
type Label int

const (
	LabelTransient Label = iota + 1
	LabelEnvironment
	LabelCode
	LabelDependency
	LabelUnknown
)

// String returns the display name of the label.
func (l Label) String() string {
	switch l {
	case LabelTransient:
		return "transient"
	case LabelEnvironment:
		return "environment"
	case LabelCode:
		return "code"
	case LabelDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// Labels lists every label in display order.
func Labels() []Label {
	return []Label{LabelTransient, LabelEnvironment, LabelCode, LabelDependency, LabelUnknown}
}
