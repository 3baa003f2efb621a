package target_binder

// Category identifies a render-target family. Each registered category is
// served by its own Provider; the binder itself never owns target memory.
type Category int

const (
	// CategoryColor is the main color render-target family.
	CategoryColor Category = iota

	// CategoryDepth is the main depth render-target family.
	CategoryDepth

	// CategoryShadowColor is the color family used by shadow composite passes.
	CategoryShadowColor

	// CategoryShadowDepth is the depth family written by shadow map passes.
	CategoryShadowDepth

	// CategoryCustomImage is the family for application-managed images.
	CategoryCustomImage

	categoryCount
)

// String returns the name of the category for logging.
func (c Category) String() string {
	switch c {
	case CategoryColor:
		return "Color"
	case CategoryDepth:
		return "Depth"
	case CategoryShadowColor:
		return "ShadowColor"
	case CategoryShadowDepth:
		return "ShadowDepth"
	case CategoryCustomImage:
		return "CustomImage"
	default:
		return "Unknown"
	}
}

// DepthBearing reports whether targets in this category attach as the depth
// target of a pass. At most one depth-bearing target may appear in a single
// bind request, across both depth-bearing categories.
//
// Returns:
//   - bool: true for CategoryDepth and CategoryShadowDepth
func (c Category) DepthBearing() bool {
	return c == CategoryDepth || c == CategoryShadowDepth
}

// DoubleBuffered reports whether the category participates in the
// flip/ping-pong protocol. Only the color-bearing families double buffer.
//
// Returns:
//   - bool: true for CategoryColor and CategoryShadowColor
func (c Category) DoubleBuffered() bool {
	return c == CategoryColor || c == CategoryShadowColor
}
