package config

// Keybinds holds all keybinding configuration. Values are plain strings
// matching the tcell.EventKey.Name() format (e.g. "Rune[j]", "Ctrl+W", "Enter").
type Keybinds struct {
	FocusStreams  string `toml:"focus_streams"`
	FocusMessages string `toml:"focus_messages"`
	FocusUsers    string `toml:"focus_users"`
	Search        string `toml:"search"`
	AllMessages   string `toml:"all_messages"`
	AllPrivate    string `toml:"all_private"`
	Quit          string `toml:"quit"`

	StreamsTree  StreamsTreeKeybinds  `toml:"streams_tree"`
	MessagesList MessagesListKeybinds `toml:"messages_list"`
	MessageInput MessageInputKeybinds `toml:"message_input"`
	SearchBox    SearchBoxKeybinds    `toml:"search_box"`
	UsersList    UsersListKeybinds    `toml:"users_list"`
}

// StreamsTreeKeybinds holds keybindings for the menu and stream tree.
type StreamsTreeKeybinds struct {
	Up            string `toml:"up"`
	Down          string `toml:"down"`
	Top           string `toml:"top"`
	Bottom        string `toml:"bottom"`
	SelectCurrent string `toml:"select_current"`
	Collapse      string `toml:"collapse"`
}

// MessagesListKeybinds holds keybindings for the messages list panel.
type MessagesListKeybinds struct {
	Up            string `toml:"up"`
	Down          string `toml:"down"`
	Top           string `toml:"top"`
	Bottom        string `toml:"bottom"`
	NarrowStream  string `toml:"narrow_stream"`
	NarrowTopic   string `toml:"narrow_topic"`
	NarrowPrivate string `toml:"narrow_private"`
	Reply         string `toml:"reply"`
	Compose       string `toml:"compose"`
	Yank          string `toml:"yank"`
}

// MessageInputKeybinds holds keybindings for the compose box.
type MessageInputKeybinds struct {
	Send    string `toml:"send"`
	Newline string `toml:"newline"`
	Cancel  string `toml:"cancel"`
}

// SearchBoxKeybinds holds keybindings for the search box.
type SearchBoxKeybinds struct {
	Submit string `toml:"submit"`
	Cancel string `toml:"cancel"`
}

// UsersListKeybinds holds keybindings for the users panel.
type UsersListKeybinds struct {
	Up     string `toml:"up"`
	Down   string `toml:"down"`
	Select string `toml:"select"`
	Close  string `toml:"close"`
}
