package model

// Item is a lot players bid on. Price is the market value used to compute
// the winner's gain.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Emoji       string `json:"emoji"`
	Price       int64  `json:"price"`
}

var catalog = []Item{
	{ID: "1", Name: "Vintage Mechanical Watch", Description: "A rare 1960s Swiss automatic timepiece with sapphire crystal", Price: 45000, Category: "Luxury", Emoji: "⌚"},
	{ID: "2", Name: "Gaming Laptop", Description: "RTX 4060, 16GB RAM, 144Hz display, RGB keyboard", Price: 85000, Category: "Electronics", Emoji: "💻"},
	{ID: "3", Name: "Royal Enfield Classic 350", Description: "Chrome black finish, single-cylinder, retro design", Price: 195000, Category: "Vehicles", Emoji: "🏍️"},
	{ID: "4", Name: "Gold Necklace Set", Description: "22K gold temple design necklace, 25 grams", Price: 150000, Category: "Jewelry", Emoji: "📿"},
	{ID: "5", Name: "iPhone 16 Pro", Description: "256GB, Titanium finish, A18 Pro chip", Price: 134900, Category: "Electronics", Emoji: "📱"},
	{ID: "6", Name: "Handmade Persian Rug", Description: "6x9 ft, silk blend, intricate floral pattern", Price: 75000, Category: "Home", Emoji: "🪴"},
	{ID: "7", Name: "Drone Camera Kit", Description: "4K stabilized camera, 30min flight, GPS return", Price: 62000, Category: "Electronics", Emoji: "🛸"},
	{ID: "8", Name: "Antique Brass Telescope", Description: "19th century naval telescope, fully functional", Price: 28000, Category: "Collectibles", Emoji: "🔭"},
	{ID: "9", Name: "Designer Leather Jacket", Description: "Italian lambskin, custom-stitched, limited edition", Price: 35000, Category: "Fashion", Emoji: "🧥"},
	{ID: "10", Name: "Electric Guitar Bundle", Description: "Fender Stratocaster with amp, pedals, and case", Price: 48000, Category: "Music", Emoji: "🎸"},
	{ID: "11", Name: "Smart Home Kit", Description: "Hub, 10 sensors, smart locks, cameras, voice control", Price: 42000, Category: "Electronics", Emoji: "🏠"},
	{ID: "12", Name: "Vintage Wine Collection", Description: "6 bottles of aged Bordeaux, 2005-2015 vintages", Price: 55000, Category: "Luxury", Emoji: "🍷"},
	{ID: "13", Name: "Professional DSLR Camera", Description: "Full-frame sensor, 45MP, weather-sealed body", Price: 120000, Category: "Electronics", Emoji: "📷"},
	{ID: "14", Name: "Teak Wood Dining Set", Description: "8-seater carved dining table with chairs", Price: 88000, Category: "Furniture", Emoji: "🪑"},
	{ID: "15", Name: "Mountain Bike", Description: "Carbon frame, 27-speed, hydraulic disc brakes", Price: 65000, Category: "Sports", Emoji: "🚲"},
	{ID: "16", Name: "Espresso Machine", Description: "Commercial-grade, dual boiler, PID temperature control", Price: 38000, Category: "Kitchen", Emoji: "☕"},
	{ID: "17", Name: "Crystal Chandelier", Description: "Swarovski crystal, 12-arm, gold-plated frame", Price: 95000, Category: "Home", Emoji: "✨"},
	{ID: "18", Name: "Signed Cricket Bat", Description: "Autographed by Virat Kohli, with COA", Price: 72000, Category: "Collectibles", Emoji: "🏏"},
	{ID: "19", Name: "4K Projector", Description: "Laser, 3000 lumens, 150-inch throw, HDR10+", Price: 155000, Category: "Electronics", Emoji: "🎬"},
	{ID: "20", Name: "Kashmiri Pashmina Shawl", Description: "Hand-embroidered, pure pashmina, heirloom quality", Price: 32000, Category: "Fashion", Emoji: "🧣"},
}

// Catalog returns a copy of the fixed item catalog
func Catalog() []Item {
	items := make([]Item, len(catalog))
	copy(items, catalog)
	return items
}
