// internal/model/instance.go
package model

// ChannelItem is one output channel of a controller instance
type ChannelItem struct {
	ChannelID   string `json:"channel_id" mapstructure:"channel_id"`
	Index       int    `json:"index" mapstructure:"index"`
	DisplayName string `json:"display_name" mapstructure:"display_name"`
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	Order       int    `json:"order" mapstructure:"order"`
}

// InstanceInfo carries instance metadata
type InstanceInfo struct {
	InstanceID  string `json:"instance_id" mapstructure:"instance_id"`
	TemplateID  string `json:"template_id" mapstructure:"template_id"`
	DisplayName string `json:"display_name" mapstructure:"display_name"`
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
}

// InstanceState is the live configuration and parameter values of one controller.
// ChannelValues is keyed by parameter key, then by channel id.
type InstanceState struct {
	Info          InstanceInfo                 `json:"info" mapstructure:"info"`
	Connection    ConnectionConfig             `json:"connection" mapstructure:"connection"`
	Channels      []ChannelItem                `json:"channels" mapstructure:"channels"`
	GlobalValues  map[string]string            `json:"global_values" mapstructure:"global_values"`
	ChannelValues map[string]map[string]string `json:"channel_values" mapstructure:"channel_values"`
}

// FindChannel returns the channel with the given id
func (s *InstanceState) FindChannel(channelID string) (ChannelItem, bool) {
	for _, ch := range s.Channels {
		if ch.ChannelID == channelID {
			return ch, true
		}
	}
	return ChannelItem{}, false
}

// Clone returns a deep copy
func (s InstanceState) Clone() InstanceState {
	out := s
	out.Channels = append([]ChannelItem(nil), s.Channels...)
	out.GlobalValues = make(map[string]string, len(s.GlobalValues))
	for k, v := range s.GlobalValues {
		out.GlobalValues[k] = v
	}
	out.ChannelValues = make(map[string]map[string]string, len(s.ChannelValues))
	for k, byChannel := range s.ChannelValues {
		cp := make(map[string]string, len(byChannel))
		for ch, v := range byChannel {
			cp[ch] = v
		}
		out.ChannelValues[k] = cp
	}
	return out
}
