package product

var fillValues = map[string]float64{
	"Granule":                                  255,
	"Mandatory_Quality_Flag":                   255,
	"Latest_High_Quality_Retrieval":            255,
	"Snow_Flag":                                255,
	"DNB_Platform":                             255,
	"Land_Water_Mask":                          255,
	"AllAngle_Composite_Snow_Covered_Quality":  255,
	"AllAngle_Composite_Snow_Free_Quality":     255,
	"NearNadir_Composite_Snow_Covered_Quality": 255,
	"NearNadir_Composite_Snow_Free_Quality":    255,
	"OffNadir_Composite_Snow_Covered_Quality":  255,
	"OffNadir_Composite_Snow_Free_Quality":     255,

	"UTC_Time":                   -999.9,
	"Sensor_Azimuth":             -32768,
	"Sensor_Zenith":              -32768,
	"Solar_Azimuth":              -32768,
	"Solar_Zenith":               -32768,
	"Lunar_Azimuth":              -32768,
	"Lunar_Zenith":               -32768,
	"Glint_Angle":                -32768,
	"Moon_Illumination_Fraction": -32768,
	"Moon_Phase_Angle":           -32768,

	"DNB_At_Sensor_Radiance_500m":          65535,
	"BrightnessTemperature_M12":            65535,
	"BrightnessTemperature_M13":            65535,
	"BrightnessTemperature_M15":            65535,
	"BrightnessTemperature_M16":            65535,
	"QF_Cloud_Mask":                        65535,
	"QF_DNB":                               65535,
	"QF_VIIRS_M10":                         65535,
	"QF_VIIRS_M11":                         65535,
	"QF_VIIRS_M12":                         65535,
	"QF_VIIRS_M13":                         65535,
	"QF_VIIRS_M15":                         65535,
	"QF_VIIRS_M16":                         65535,
	"Radiance_M10":                         65535,
	"Radiance_M11":                         65535,
	"DNB_BRDF-Corrected_NTL":               65535,
	"DNB_Lunar_Irradiance":                 65535,
	"Gap_Filled_DNB_BRDF-Corrected_NTL":    65535,
	"AllAngle_Composite_Snow_Covered":      65535,
	"AllAngle_Composite_Snow_Covered_Num":  65535,
	"AllAngle_Composite_Snow_Free":         65535,
	"AllAngle_Composite_Snow_Free_Num":     65535,
	"NearNadir_Composite_Snow_Covered":     65535,
	"NearNadir_Composite_Snow_Covered_Num": 65535,
	"NearNadir_Composite_Snow_Free":        65535,
	"NearNadir_Composite_Snow_Free_Num":    65535,
	"OffNadir_Composite_Snow_Covered":      65535,
	"OffNadir_Composite_Snow_Covered_Num":  65535,
	"OffNadir_Composite_Snow_Free":         65535,
	"OffNadir_Composite_Snow_Free_Num":     65535,
	"AllAngle_Composite_Snow_Covered_Std":  65535,
	"AllAngle_Composite_Snow_Free_Std":     65535,
	"NearNadir_Composite_Snow_Covered_Std": 65535,
	"NearNadir_Composite_Snow_Free_Std":    65535,
	"OffNadir_Composite_Snow_Covered_Std":  65535,
	"OffNadir_Composite_Snow_Free_Std":     65535,
}

// FillValue returns the no-data sentinel stored in the named dataset.
func FillValue(variable string) (float64, bool) {
	v, ok := fillValues[variable]
	return v, ok
}
