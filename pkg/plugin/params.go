package plugin

import (
	"fmt"

	"github.com/echoelmusic/ultrasampler/pkg/bio"
	"github.com/echoelmusic/ultrasampler/pkg/framework/param"
)

// Bridge parameter IDs. Engine parameters keep their own IDs; none of them
// collide with these.
const (
	ParamBypass     uint32 = 0
	ParamGain       uint32 = 1
	ParamMix        uint32 = 2
	ParamReverbMix  uint32 = 70
	ParamRoomSize   uint32 = 71
	ParamDelayTime  uint32 = 72
	ParamDelayFB    uint32 = 73
	ParamDelayMix   uint32 = 74
	ParamCompThresh uint32 = 75
	ParamCompRatio  uint32 = 76
	ParamDrive      uint32 = 77
	ParamChorusMix  uint32 = 78
	ParamBioAmount  uint32 = 80
	ParamBioTarget  uint32 = 81
)

// bridgeParams are the host-facing controls the instance owns on top of the
// engine table.
type bridgeParams struct {
	bypass, gain, mix                    *param.Parameter
	reverbMix, roomSize                  *param.Parameter
	delayTime, delayFB, delayMix         *param.Parameter
	compThresh, compRatio, drive, chorus *param.Parameter
	bioAmount, bioTarget                 *param.Parameter
}

func newBridgeParams() *bridgeParams {
	return &bridgeParams{
		bypass: param.BypassParameter(ParamBypass, "Bypass").ShortName("Byp").Group("Global").Build(),
		gain:   param.GainParameter(ParamGain, "Output Gain", -60, 12, 0).ShortName("Gain").Group("Global").Modulatable().Build(),
		mix:    param.PercentParameter(ParamMix, "Dry/Wet Mix", 100).ShortName("Mix").Group("Global").Build(),

		reverbMix: param.PercentParameter(ParamReverbMix, "Reverb Mix", 15).ShortName("Rev").Group("Effects").Modulatable().Build(),
		roomSize: param.New(ParamRoomSize, "Room Size").ShortName("Room").Group("Effects").
			Range(0, 1).Default(0.7).Build(),
		delayTime: param.TimeParameter(ParamDelayTime, "Delay Time", 1, 2000, 375).ShortName("DlyT").Group("Effects").Build(),
		delayFB: param.New(ParamDelayFB, "Delay Feedback").ShortName("DlyFB").Group("Effects").
			Range(0, 95).Default(40).Unit("%").Formatter(param.PercentFormatter, param.PercentParser).Build(),
		delayMix: param.PercentParameter(ParamDelayMix, "Delay Mix", 20).ShortName("DlyM").Group("Effects").Build(),
		compThresh: param.GainParameter(ParamCompThresh, "Comp Threshold", -60, 0, 0).ShortName("Thr").Group("Effects").
			Formatter(func(v float64) string { return fmt.Sprintf("%.1f dB", v) }, param.DecibelParser).Build(),
		compRatio: param.New(ParamCompRatio, "Comp Ratio").ShortName("Ratio").Group("Effects").
			Range(1, 20).Default(1).Formatter(func(v float64) string { return fmt.Sprintf("%.1f:1", v) }, nil).Build(),
		drive: param.New(ParamDrive, "Drive").ShortName("Drv").Group("Effects").
			Range(0, 1).Default(0.1).Modulatable().Build(),
		chorus: param.PercentParameter(ParamChorusMix, "Chorus Mix", 0).ShortName("Chor").Group("Effects").Build(),

		bioAmount: param.PercentParameter(ParamBioAmount, "Bio Intensity", 50).ShortName("Bio").Group("Bio").Build(),
		bioTarget: param.Choice(ParamBioTarget, "Bio Target", bio.TargetNames...).ShortName("BioT").Group("Bio").
			Default(float64(bio.TargetAll)).Build(),
	}
}

func (b *bridgeParams) all() []*param.Parameter {
	return []*param.Parameter{
		b.bypass, b.gain, b.mix,
		b.reverbMix, b.roomSize, b.delayTime, b.delayFB, b.delayMix,
		b.compThresh, b.compRatio, b.drive, b.chorus,
		b.bioAmount, b.bioTarget,
	}
}

// ParamCount returns the number of host-visible parameters.
func (in *Instance) ParamCount() int {
	return in.registry.Count()
}

// ParamInfo returns the parameter at index i, or nil.
func (in *Instance) ParamInfo(i int) *param.Parameter {
	return in.registry.GetByIndex(i)
}

// Param returns the plain value of a parameter, or 0 for an unknown ID.
func (in *Instance) Param(id uint32) float64 {
	if p := in.registry.Get(id); p != nil {
		return p.Value()
	}
	return 0
}

// SetParam stores a plain value. It reports false for an unknown or
// read-only ID.
func (in *Instance) SetParam(id uint32, value float64) bool {
	p := in.registry.Get(id)
	if p == nil || p.Flags&param.IsReadOnly != 0 {
		return false
	}
	p.SetValue(value)
	return true
}

// FormatParam renders value the way the parameter displays it.
func (in *Instance) FormatParam(id uint32, value float64) string {
	p := in.registry.Get(id)
	if p == nil {
		return ""
	}
	return p.Format(value)
}
