package events

// Channel is a stable event channel name.
type Channel string

// Game loop channels.
const (
	GameLaunched           Channel = "game_loop.game_launched"
	UpdateTicking          Channel = "game_loop.update_ticking"
	UpdateTicked           Channel = "game_loop.update_ticked"
	OneSecondUpdateTicking Channel = "game_loop.one_second_update_ticking"
	OneSecondUpdateTicked  Channel = "game_loop.one_second_update_ticked"
	Saving                 Channel = "game_loop.saving"
	Saved                  Channel = "game_loop.saved"
	SaveCreating           Channel = "game_loop.save_creating"
	SaveCreated            Channel = "game_loop.save_created"
	SaveLoaded             Channel = "game_loop.save_loaded"
	ReturnedToTitle        Channel = "game_loop.returned_to_title"
	DayStarted             Channel = "game_loop.day_started"
	DayEnding              Channel = "game_loop.day_ending"
	TimeChanged            Channel = "game_loop.time_changed"
)

// Input channels.
const (
	ButtonPressed      Channel = "input.button_pressed"
	ButtonReleased     Channel = "input.button_released"
	CursorMoved        Channel = "input.cursor_moved"
	MouseWheelScrolled Channel = "input.mouse_wheel_scrolled"
)

// Display channels.
const (
	MenuChanged         Channel = "display.menu_changed"
	WindowResized       Channel = "display.window_resized"
	Rendering           Channel = "display.rendering"
	Rendered            Channel = "display.rendered"
	RenderingWorld      Channel = "display.rendering_world"
	RenderedWorld       Channel = "display.rendered_world"
	RenderingHUD        Channel = "display.rendering_hud"
	RenderedHUD         Channel = "display.rendered_hud"
	RenderingActiveMenu Channel = "display.rendering_active_menu"
	RenderedActiveMenu  Channel = "display.rendered_active_menu"
)

// Content channels.
const (
	LocaleChanged Channel = "content.locale_changed"
)

// World channels.
const (
	LocationListChanged       Channel = "world.location_list_changed"
	BuildingListChanged       Channel = "world.building_list_changed"
	DebrisListChanged         Channel = "world.debris_list_changed"
	NPCListChanged            Channel = "world.npc_list_changed"
	ObjectListChanged         Channel = "world.object_list_changed"
	TerrainFeatureListChanged Channel = "world.terrain_feature_list_changed"
	ChestInventoryChanged     Channel = "world.chest_inventory_changed"
)

// Player channels.
const (
	Warped           Channel = "player.warped"
	LevelChanged     Channel = "player.level_changed"
	InventoryChanged Channel = "player.inventory_changed"
)

// Specialized channels.
const (
	LoadStageChanged Channel = "specialized.load_stage_changed"
)

// Catalog lists every built-in channel in documentation order.
var Catalog = []Channel{
	GameLaunched, UpdateTicking, UpdateTicked, OneSecondUpdateTicking, OneSecondUpdateTicked,
	Saving, Saved, SaveCreating, SaveCreated, SaveLoaded, ReturnedToTitle,
	DayStarted, DayEnding, TimeChanged,
	ButtonPressed, ButtonReleased, CursorMoved, MouseWheelScrolled,
	MenuChanged, WindowResized,
	Rendering, Rendered, RenderingWorld, RenderedWorld, RenderingHUD, RenderedHUD,
	RenderingActiveMenu, RenderedActiveMenu,
	LocaleChanged,
	LocationListChanged, BuildingListChanged, DebrisListChanged, NPCListChanged,
	ObjectListChanged, TerrainFeatureListChanged, ChestInventoryChanged,
	Warped, LevelChanged, InventoryChanged,
	LoadStageChanged,
}
