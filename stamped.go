package tf2

// Header identifies the frame and time at which stamped data is expressed.
type Header struct {
	Stamp   Time
	FrameID string
}

// TransformStamped is an observation of the pose of ChildFrameID relative to
// Header.FrameID at Header.Stamp. Its Transform maps coordinates expressed in
// the child frame into the parent (header) frame.
//
// Lookups return a TransformStamped as well: Header.FrameID is the target
// frame, ChildFrameID the source frame, and Header.Stamp the time at which the
// chain was evaluated.
type TransformStamped struct {
	Header
	ChildFrameID string
	Transform    Transform
}

// Pose is a position and orientation.
type Pose struct {
	Position    Vector3
	Orientation Quaternion
}

// PoseStamped is a pose expressed in Header.FrameID at Header.Stamp.
type PoseStamped struct {
	Header
	Pose Pose
}

// ToPoseStamped reinterprets a transform as the pose of its child frame in its
// parent frame.
func (t TransformStamped) ToPoseStamped() PoseStamped {
	return PoseStamped{
		Header: t.Header,
		Pose: Pose{
			Position:    t.Transform.Translation,
			Orientation: t.Transform.Rotation,
		},
	}
}

// PointStamped is a point expressed in Header.FrameID at Header.Stamp.
type PointStamped struct {
	Header
	Point Vector3
}
