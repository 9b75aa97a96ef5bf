package mcp

import "github.com/mark3labs/mcp-go/mcp"

var statusToolDef = mcp.NewTool("game_status",
	mcp.WithDescription("Show capsule and token balances, the next capsule regeneration, and collection counts."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var reportToolDef = mcp.NewTool("game_report",
	mcp.WithDescription("Render the collection as a markdown report. Pass section to return one section only (Balances, Collection, Eggs, Breeding cooldowns)."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("section", mcp.Description("Report section title, case-insensitive")),
)

var exportToolDef = mcp.NewTool("game_export",
	mcp.WithDescription("Write the whole game to a JSON file. Defaults to ~/.critter/exports/critter-<timestamp>.json."),
	mcp.WithString("path", mcp.Description("Destination .json file")),
)

var importToolDef = mcp.NewTool("game_import",
	mcp.WithDescription("Load a game export. replace swaps the whole game; merge adds creatures and eggs not already present."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .json file")),
	mcp.WithString("mode", mcp.Enum("replace", "merge"), mcp.Description("Import mode (default replace)")),
)

var listCreaturesToolDef = mcp.NewTool("creature_list",
	mcp.WithDescription("List collected creatures with their breeding cooldowns, oldest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("species_id", mcp.Description("Only this species"), mcp.Min(1)),
	mcp.WithString("type", mcp.Description("Only creatures with this type, e.g. fire")),
	mcp.WithBoolean("unseen_only", mcp.Description("Only creatures the player has not opened yet")),
	mcp.WithBoolean("rare_only", mcp.Description("Only rare variants")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)"), mcp.Min(1), mcp.Max(500)),
	mcp.WithNumber("offset", mcp.Description("Items to skip"), mcp.Min(0)),
)

var evolveToolDef = mcp.NewTool("creature_evolve",
	mcp.WithDescription("Consume two or more creatures of one species and add the species they evolve into."),
	mcp.WithArray("instance_ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("Creatures to consume, all of the same species")),
)

var breedToolDef = mcp.NewTool("creature_breed",
	mcp.WithDescription("Breed two creatures of the same species into a new egg. Both parents enter a cooldown."),
	mcp.WithArray("instance_ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("Exactly two parents")),
)

var cooldownsToolDef = mcp.NewTool("creature_cooldowns",
	mcp.WithDescription("Show breeding cooldown progress. Without instance_ids every active cooldown is listed."),
	mcp.WithArray("instance_ids", mcp.WithStringItems(), mcp.Description("Creatures to check")),
)

var recycleToolDef = mcp.NewTool("creature_recycle",
	mcp.WithDescription("Remove creatures from the collection in exchange for tokens."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithArray("instance_ids", mcp.Required(), mcp.WithStringItems(), mcp.Description("Creatures to recycle")),
)

var seenToolDef = mcp.NewTool("creature_seen",
	mcp.WithDescription("Mark a creature as seen."),
	mcp.WithString("instance_id", mcp.Required(), mcp.Description("Creature instance ID")),
)

var listEggsToolDef = mcp.NewTool("egg_list",
	mcp.WithDescription("List eggs with their incubation status and progress."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var hatchToolDef = mcp.NewTool("egg_hatch",
	mcp.WithDescription("Hatch a ready egg into a creature. Address the egg by egg_id or index."),
	mcp.WithNumber("index", mcp.Description("Egg position in egg_list"), mcp.Min(0)),
	mcp.WithString("egg_id", mcp.Description("Egg instance ID (takes precedence over index)")),
)

var warmToolDef = mcp.NewTool("egg_warm",
	mcp.WithDescription("Warm an egg up, shortening its hatch time down to the configured floor."),
	mcp.WithNumber("index", mcp.Description("Egg position in egg_list"), mcp.Min(0)),
	mcp.WithString("egg_id", mcp.Description("Egg instance ID (takes precedence over index)")),
)

var openCapsuleToolDef = mcp.NewTool("capsule_open",
	mcp.WithDescription("Spend one capsule for a random creature or an egg."),
)

var buyCapsuleToolDef = mcp.NewTool("shop_buy_capsule",
	mcp.WithDescription("Trade tokens for one capsule."),
)

var buyRareToolDef = mcp.NewTool("shop_buy_rare",
	mcp.WithDescription("Trade tokens for a random rare variant."),
)

var photoToolDef = mcp.NewTool("photo_capture",
	mcp.WithDescription("Record a photo of a creature in the gallery."),
	mcp.WithString("instance_id", mcp.Required(), mcp.Description("Creature instance ID")),
	mcp.WithString("image_ref", mcp.Required(), mcp.Description("Where the image is stored (URL or path)")),
)
