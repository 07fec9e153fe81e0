package version

import (
	"strconv"

	"github.com/valentin-kaiser/omniversion/apperror"
)

// OSGiVersion is the plain value form of an OSGi version, used to exchange versions
// with code that does not know about vectors
type OSGiVersion struct {
	Major     int    `yaml:"major" json:"major"`
	Minor     int    `yaml:"minor" json:"minor"`
	Micro     int    `yaml:"micro" json:"micro"`
	Qualifier string `yaml:"qualifier,omitempty" json:"qualifier,omitempty"`
}

// String returns the dotted form
func (o OSGiVersion) String() string {
	s := strconv.Itoa(o.Major) + "." + strconv.Itoa(o.Minor) + "." + strconv.Itoa(o.Micro)
	if o.Qualifier != "" {
		s += "." + o.Qualifier
	}
	return s
}

// FromOSGi converts an OSGi value into a version tagged with the OSGi format
func FromOSGi(o OSGiVersion) (*Version, error) {
	return CreateOSGi(o.Major, o.Minor, o.Micro, o.Qualifier)
}

// ToOSGi converts the version into an OSGi value. It fails if the version
// does not have the OSGi shape.
func (v *Version) ToOSGi() (OSGiVersion, error) {
	if !v.IsOSGiCompatible() {
		err := apperror.NewErrorf(apperror.KindUnsupported, "%s is not an OSGi version", v)
		if cause := v.ValidateOSGi(); cause != nil {
			err = err.AddError(cause)
		}
		return OSGiVersion{}, err
	}

	var o OSGiVersion
	var err error
	if o.Major, err = v.Major(); err != nil {
		return OSGiVersion{}, err
	}
	if o.Minor, err = v.Minor(); err != nil {
		return OSGiVersion{}, err
	}
	if o.Micro, err = v.Micro(); err != nil {
		return OSGiVersion{}, err
	}
	if o.Qualifier, _, err = v.Qualifier(); err != nil {
		return OSGiVersion{}, err
	}
	return o, nil
}
