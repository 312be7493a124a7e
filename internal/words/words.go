// Package words 提供依類別抽題的字庫，沒有任何狀態。
package words

import (
	"math/rand/v2"
	"sort"
)

const CategoryAll = "all"

var lists = map[string][]string{
	"animals": {
		"Elephant", "Dog", "Cat", "Giraffe", "Penguin", "Dolphin", "Butterfly", "Snake", "Rabbit", "Owl",
		"Lion", "Tiger", "Bear", "Monkey", "Zebra", "Kangaroo", "Whale", "Shark", "Eagle", "Frog",
		"Horse", "Cow", "Pig", "Chicken", "Duck", "Turtle", "Octopus", "Jellyfish", "Flamingo", "Parrot",
		"Wolf", "Fox", "Deer", "Moose", "Bat", "Bee", "Ant", "Spider", "Crocodile", "Hippo",
		"Peacock", "Gorilla", "Panda", "Koala", "Sloth", "Chameleon", "Seahorse", "Starfish", "Crab", "Lobster",
		"Snail", "Hedgehog", "Squirrel", "Raccoon", "Skunk", "Camel", "Llama", "Ostrich", "Pelican", "Swan",
	},
	"objects": {
		"Rocket", "House", "Car", "Umbrella", "Guitar", "Camera", "Bicycle", "Clock", "Telescope", "Crown",
		"Airplane", "Helicopter", "Train", "Boat", "Submarine", "Skateboard", "Motorcycle", "Bus", "Truck", "Tractor",
		"Piano", "Drum", "Violin", "Trumpet", "Microphone", "Headphones", "Television", "Computer", "Phone", "Lamp",
		"Chair", "Table", "Bed", "Sofa", "Bookshelf", "Mirror", "Scissors", "Hammer", "Wrench", "Key",
		"Ladder", "Tent", "Backpack", "Suitcase", "Wallet", "Glasses", "Hat", "Shoe", "Ring", "Necklace",
		"Candle", "Lighthouse", "Windmill", "Bridge", "Castle", "Sword", "Shield", "Treasure Chest", "Globe", "Map",
		"Paintbrush", "Pencil", "Notebook", "Envelope", "Mailbox", "Kite", "Balloon", "Firework", "Magnet", "Compass",
	},
	"food": {
		"Pizza", "Banana", "Hamburger", "Ice Cream", "Sushi", "Taco", "Donut", "Watermelon", "Cupcake", "Popcorn",
		"Apple", "Orange", "Grapes", "Strawberry", "Pineapple", "Cherry", "Lemon", "Avocado", "Carrot", "Broccoli",
		"Corn", "Mushroom", "Onion", "Potato", "Tomato", "Pepper", "Cheese", "Bread", "Croissant", "Pretzel",
		"Pancake", "Waffle", "Cookie", "Cake", "Pie", "Chocolate", "Candy", "Lollipop", "Gummy Bear", "Cotton Candy",
		"Hot Dog", "French Fries", "Burrito", "Sandwich", "Fried Egg", "Bacon", "Steak", "Chicken Leg", "Shrimp", "Noodles",
		"Coffee", "Milkshake", "Juice Box", "Coconut", "Mango", "Pear", "Peach", "Pumpkin", "Eggplant", "Garlic",
	},
	"places": {
		"Beach", "Mountain", "Forest", "Desert", "Island", "Volcano", "Waterfall", "Cave", "Lake", "River",
		"Hospital", "School", "Library", "Museum", "Zoo", "Circus", "Playground", "Stadium", "Airport", "Train Station",
		"Restaurant", "Bakery", "Supermarket", "Farm", "Garden", "Park", "Swimming Pool", "Movie Theater", "Church", "Prison",
	},
	"actions": {
		"Swimming", "Dancing", "Cooking", "Sleeping", "Running", "Jumping", "Climbing", "Fishing", "Surfing", "Skiing",
		"Reading", "Painting", "Singing", "Laughing", "Crying", "Sneezing", "Yawning", "Waving", "Clapping", "Hugging",
		"Digging", "Flying", "Diving", "Bowling", "Boxing", "Juggling", "Camping", "Hiking", "Karate", "Yoga",
	},
}

type Catalog struct {
	lists map[string][]string
	all   []string
	intn  func(n int) int
}

// NewCatalog 使用內建字庫；intn 為 nil 時使用 math/rand/v2
func NewCatalog(intn func(n int) int) *Catalog {
	return NewCatalogFrom(lists, intn)
}

func NewCatalogFrom(source map[string][]string, intn func(n int) int) *Catalog {
	if intn == nil {
		intn = rand.IntN
	}
	c := &Catalog{lists: make(map[string][]string, len(source)), intn: intn}

	names := make([]string, 0, len(source))
	for name := range source {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == CategoryAll || len(source[name]) == 0 {
			continue
		}
		c.lists[name] = source[name]
		c.all = append(c.all, source[name]...)
	}
	return c
}

// Category 把未知類別歸為 all
func (c *Catalog) Category(name string) string {
	if _, ok := c.lists[name]; ok {
		return name
	}
	return CategoryAll
}

func (c *Catalog) Categories() []string {
	names := make([]string, 0, len(c.lists)+1)
	names = append(names, CategoryAll)
	for name := range c.lists {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}

// Pick 從類別中隨機抽出一個字，永遠不會是空字串
func (c *Catalog) Pick(category string) string {
	list := c.all
	if l, ok := c.lists[category]; ok {
		list = l
	}
	return list[c.intn(len(list))]
}
